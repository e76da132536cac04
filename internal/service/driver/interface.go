package driver

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

/*=================Driver Repository======================*/

type DriverRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) error
}

/*=====================Ride Repository============================*/

type RideRepo interface {
	// HasActiveRide reports whether the driver has an ACCEPTED or IN_PROGRESS ride.
	HasActiveRide(ctx context.Context, driverID uuid.UUID) (bool, error)
}

/*===================== Geo Index ========================*/

type Index interface {
	Upsert(ctx context.Context, id uuid.UUID, lat, lng float64) error
	Remove(ctx context.Context, id uuid.UUID) error
}

/*===================== Address Geo Coder ========================*/

type GeoCoder interface {
	GetAddress(ctx context.Context, longitude, latitude float64) (string, error)
}
