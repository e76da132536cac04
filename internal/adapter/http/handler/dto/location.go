package dto

import "github.com/Temutjin2k/ride-dispatch/internal/domain/models"

// Location is either a coordinate pair or a free-form address to geocode.
type Location struct {
	Latitude  *float64 `json:"latitude" validate:"required_without=Address,omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required_without=Address,omitempty,gte=-180,lte=180"`
	Address   string   `json:"address" validate:"max=256"`
}

func (l Location) ToModel() models.Location {
	loc := models.Location{Address: l.Address}
	if l.Latitude != nil {
		loc.Latitude = *l.Latitude
	}
	if l.Longitude != nil {
		loc.Longitude = *l.Longitude
	}
	return loc
}

// Coordinates is a point that must be given explicitly.
type Coordinates struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}
