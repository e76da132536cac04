package geo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AvailabilityFilter narrows driver ids down to the ones currently dispatchable.
type AvailabilityFilter interface {
	AvailableIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

// Demand counts riders and available drivers around a point for demand pricing.
type Demand struct {
	drivers   *Index
	riders    *Index
	available AvailabilityFilter // nil counts every indexed driver
}

func NewDemand(drivers, riders *Index, available AvailabilityFilter) *Demand {
	return &Demand{drivers: drivers, riders: riders, available: available}
}

func (d *Demand) Riders(ctx context.Context, lat, lng, radiusKm float64) (int, error) {
	return d.riders.Count(ctx, lat, lng, radiusKm)
}

func (d *Demand) Drivers(ctx context.Context, lat, lng, radiusKm float64) (int, error) {
	hits, err := d.drivers.QueryRadius(ctx, lat, lng, radiusKm)
	if err != nil {
		return 0, err
	}
	if d.available == nil || len(hits) == 0 {
		return len(hits), nil
	}

	ids := make([]uuid.UUID, len(hits))
	for i := range hits {
		ids[i] = hits[i].ID
	}
	avail, err := d.available.AvailableIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to filter available drivers: %w", err)
	}
	return len(avail), nil
}
