package memory

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type DriverRepo struct {
	s *Store
}

func cloneDriver(d *models.Driver) *models.Driver {
	c := *d
	if d.Vehicle != nil {
		v := *d.Vehicle
		c.Vehicle = &v
	}
	return &c
}

// Create inserts or replaces a driver.
func (r *DriverRepo) Create(ctx context.Context, d *models.Driver) error {
	return r.s.write(ctx, func() (func(), error) {
		prev, existed := r.s.drivers[d.ID]
		r.s.drivers[d.ID] = cloneDriver(d)
		return func() {
			if existed {
				r.s.drivers[d.ID] = prev
			} else {
				delete(r.s.drivers, d.ID)
			}
		}, nil
	})
}

func (r *DriverRepo) Get(_ context.Context, id uuid.UUID) (*models.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.drivers[id]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	return cloneDriver(d), nil
}

func (r *DriverRepo) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID]*models.Driver, len(ids))
	for _, id := range ids {
		if d, ok := r.s.drivers[id]; ok {
			out[id] = cloneDriver(d)
		}
	}
	return out, nil
}

// update applies mutate to the stored driver and registers an undo restoring the previous copy.
func (r *DriverRepo) update(ctx context.Context, id uuid.UUID, mutate func(d *models.Driver) bool) (bool, error) {
	var changed bool
	err := r.s.write(ctx, func() (func(), error) {
		d, ok := r.s.drivers[id]
		if !ok {
			return nil, types.ErrDriverNotFound
		}
		prev := cloneDriver(d)
		if !mutate(d) {
			return nil, nil
		}
		changed = true
		d.UpdatedAt = time.Now()
		return func() { r.s.drivers[id] = prev }, nil
	})
	return changed, err
}

func (r *DriverRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to types.DriverStatus) (bool, error) {
	return r.update(ctx, id, func(d *models.Driver) bool {
		if d.Status != from {
			return false
		}
		d.Status = to
		return true
	})
}

func (r *DriverRepo) SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) error {
	_, err := r.update(ctx, id, func(d *models.Driver) bool {
		d.Status = status
		return true
	})
	return err
}

func (r *DriverRepo) AddTotals(ctx context.Context, id uuid.UUID, delta models.TotalsDelta) error {
	_, err := r.update(ctx, id, func(d *models.Driver) bool {
		d.Totals.Rides++
		d.Totals.DistanceKm = models.Round2(d.Totals.DistanceKm + delta.DistanceKm)
		d.Totals.Minutes += delta.Minutes
		d.Totals.Earnings += delta.Earnings
		return true
	})
	return err
}

func (r *DriverRepo) SetRating(ctx context.Context, id uuid.UUID, rating float64) error {
	_, err := r.update(ctx, id, func(d *models.Driver) bool {
		d.Rating = rating
		return true
	})
	return err
}

// Ratings implements geo.RatingSource.
func (r *DriverRepo) Ratings(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID]float64, len(ids))
	for _, id := range ids {
		if d, ok := r.s.drivers[id]; ok {
			out[id] = d.Rating
		}
	}
	return out, nil
}

// AvailableIDs implements geo.AvailabilityFilter.
func (r *DriverRepo) AvailableIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.s.drivers[id]; ok && d.Dispatchable() {
			out = append(out, id)
		}
	}
	return out, nil
}
