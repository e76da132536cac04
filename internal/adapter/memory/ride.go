package memory

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type RideRepo struct {
	s *Store
}

func cloneRide(r *models.Ride) *models.Ride {
	c := *r
	return &c
}

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) error {
	return r.s.write(ctx, func() (func(), error) {
		r.s.rides[ride.ID] = cloneRide(ride)
		return func() { delete(r.s.rides, ride.ID) }, nil
	})
}

func (r *RideRepo) Get(_ context.Context, id uuid.UUID) (*models.Ride, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ride, ok := r.s.rides[id]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	return cloneRide(ride), nil
}

// GetForUpdate is Get; the memory store has no row locks.
func (r *RideRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Ride, error) {
	return r.Get(ctx, id)
}

func (r *RideRepo) transition(ctx context.Context, id uuid.UUID, from, to types.RideStatus, mutate func(ride *models.Ride)) (bool, error) {
	var ok bool
	err := r.s.write(ctx, func() (func(), error) {
		ride, found := r.s.rides[id]
		if !found {
			return nil, types.ErrRideNotFound
		}
		if ride.Status != from {
			return nil, nil
		}
		prev := cloneRide(ride)
		ride.Status = to
		mutate(ride)
		ok = true
		return func() { r.s.rides[id] = prev }, nil
	})
	return ok, err
}

func (r *RideRepo) Start(ctx context.Context, id uuid.UUID, pickupAt time.Time) (bool, error) {
	return r.transition(ctx, id, types.RideAccepted, types.RideInProgress, func(ride *models.Ride) {
		ride.PickupTime = &pickupAt
	})
}

func (r *RideRepo) Complete(ctx context.Context, id uuid.UUID, dropAt time.Time, durationMinutes int) (bool, error) {
	return r.transition(ctx, id, types.RideInProgress, types.RideCompleted, func(ride *models.Ride) {
		ride.DropTime = &dropAt
		ride.DurationMinutes = durationMinutes
	})
}

func (r *RideRepo) SetPaymentState(ctx context.Context, id uuid.UUID, state types.RidePaymentState) error {
	return r.s.write(ctx, func() (func(), error) {
		ride, found := r.s.rides[id]
		if !found {
			return nil, types.ErrRideNotFound
		}
		prev := cloneRide(ride)
		ride.PaymentState = state
		return func() { r.s.rides[id] = prev }, nil
	})
}

func (r *RideRepo) HasActiveRide(_ context.Context, driverID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, ride := range r.s.rides {
		if ride.DriverID == driverID && ride.Status != types.RideCompleted {
			return true, nil
		}
	}
	return false, nil
}

type RatingRepo struct {
	s *Store
}

func (r *RatingRepo) Create(ctx context.Context, rating *models.Rating) error {
	return r.s.write(ctx, func() (func(), error) {
		if _, exists := r.s.ratings[rating.RideID]; exists {
			return nil, types.ErrRideAlreadyRated
		}
		c := *rating
		r.s.ratings[rating.RideID] = &c
		return func() { delete(r.s.ratings, rating.RideID) }, nil
	})
}

func (r *RatingRepo) Average(_ context.Context, driverID uuid.UUID) (float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sum, n int
	for _, rating := range r.s.ratings {
		if rating.DriverID == driverID {
			sum += rating.Score
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}
