package request

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

/*=================Ride Request Repository================*/

type RequestRepo interface {
	Create(ctx context.Context, req *models.RideRequest) error
	Get(ctx context.Context, id uuid.UUID) (*models.RideRequest, error)
	// Finalize moves a PENDING request to status. It reports false when the request was not PENDING.
	Finalize(ctx context.Context, id uuid.UUID, status types.RideRequestStatus, at time.Time) (bool, error)
	ListPending(ctx context.Context) ([]models.RideRequest, error)
}

type DriverGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
}

// RideCreator spawns the ride of an accepted request.
type RideCreator interface {
	CreateRide(ctx context.Context, in models.CreateRideInput) (*models.Ride, error)
}

/*===================== External oracles =====================*/

type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Location, error)
}

type Pricer interface {
	Quote(ctx context.Context, distanceKm float64, vehicle types.VehicleClass, lat, lng float64, now time.Time) (models.FareBreakdown, error)
}

// RiderLocator records rider positions for demand pricing.
type RiderLocator interface {
	Upsert(ctx context.Context, id uuid.UUID, lat, lng float64) error
}

type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Router estimates road travel time between two points.
type Router interface {
	TravelTime(ctx context.Context, from, to models.Location) (time.Duration, error)
}
