package dispatch

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/google/uuid"
)

/*=================Driver Repository======================*/

type DriverRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Driver, error)
	// CompareAndSetStatus sets to only when the current status is from. It reports whether it did.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to types.DriverStatus) (bool, error)
}

/*=================Ride Request Repository================*/

type RequestRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.RideRequest, error)
	LinkRide(ctx context.Context, requestID, rideID uuid.UUID) error
}

/*=================Ride Repository========================*/

type RideRepo interface {
	Create(ctx context.Context, ride *models.Ride) error
}

/*=================Geo / Pricing==========================*/

type Locator interface {
	QueryRadius(ctx context.Context, lat, lng, radiusKm float64) ([]geo.Hit, error)
}

type Pricer interface {
	Quote(ctx context.Context, distanceKm float64, vehicle types.VehicleClass, lat, lng float64, now time.Time) (models.FareBreakdown, error)
}
