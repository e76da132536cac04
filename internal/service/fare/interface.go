package fare

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

/*===================== Weather Oracle ========================*/

type WeatherOracle interface {
	Weather(ctx context.Context, lat, lng float64) (models.Weather, error)
}

/*===================== Demand Source =========================*/

type DemandSource interface {
	Riders(ctx context.Context, lat, lng, radiusKm float64) (int, error)
	Drivers(ctx context.Context, lat, lng, radiusKm float64) (int, error)
}
