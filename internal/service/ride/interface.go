package ride

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

/*=====================Ride Repository============================*/

type RideRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Ride, error)
	// Start moves an ACCEPTED ride to IN_PROGRESS. False means the ride was not ACCEPTED.
	Start(ctx context.Context, id uuid.UUID, pickupAt time.Time) (bool, error)
	// Complete moves an IN_PROGRESS ride to COMPLETED. False means the ride was not IN_PROGRESS.
	Complete(ctx context.Context, id uuid.UUID, dropAt time.Time, durationMinutes int) (bool, error)
	SetPaymentState(ctx context.Context, id uuid.UUID, state types.RidePaymentState) error
}

/*=================Driver Repository======================*/

type DriverRepo interface {
	AddTotals(ctx context.Context, id uuid.UUID, delta models.TotalsDelta) error
	SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) error
	SetRating(ctx context.Context, id uuid.UUID, rating float64) error
}

type RatingRepo interface {
	// Create fails with types.ErrRideAlreadyRated when the ride already has a rating.
	Create(ctx context.Context, r *models.Rating) error
	Average(ctx context.Context, driverID uuid.UUID) (float64, error)
}

// Settler charges the rider for a completed ride.
type Settler interface {
	SettleRide(ctx context.Context, driverID, riderID, rideID uuid.UUID) (*models.Settlement, error)
}

type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}
