package geo

import (
	"math"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

const EarthRadiusKm = 6371.0

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineDistance calculates the great-circle distance in km between two points on a spherical earth.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)

	deltaLat := lat2Rad - lat1Rad
	deltaLon := degreesToRadians(lon2 - lon1)

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Pow(math.Sin(deltaLon/2), 2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// DistanceKm is HaversineDistance rounded to 2 decimals.
func DistanceKm(from, to models.Location) float64 {
	return models.Round2(HaversineDistance(from.Latitude, from.Longitude, to.Latitude, to.Longitude))
}
