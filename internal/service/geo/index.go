package geo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

// Hit is one result of a radius query.
type Hit struct {
	ID         uuid.UUID `json:"driver_id"`
	DistanceKm float64   `json:"distance_km"`
	Rating     float64   `json:"rating"`
	Location   models.Location
}

// Index answers "who is within R km of a point" over an injected Store.
type Index struct {
	store   Store
	ratings RatingSource // nil for indexes without ratings (riders)
	now     func() time.Time
}

func NewIndex(store Store, ratings RatingSource) *Index {
	return &Index{
		store:   store,
		ratings: ratings,
		now:     time.Now,
	}
}

// Upsert replaces the position of id. Last write wins.
func (i *Index) Upsert(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	if id == uuid.Nil {
		return types.ErrInvalidID
	}
	if !(models.Location{Latitude: lat, Longitude: lng}).Valid() {
		return types.ErrInvalidCoordinates
	}

	if err := i.store.Set(ctx, id, lat, lng, i.now()); err != nil {
		return fmt.Errorf("failed to store location: %w", err)
	}
	return nil
}

// Remove drops the position of id. Removing an unknown id is not an error.
func (i *Index) Remove(ctx context.Context, id uuid.UUID) error {
	if err := i.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return nil
}

// QueryRadius returns entries within radiusKm of the point ordered by distance ascending,
// then rating descending, then id ascending. No match yields an empty slice.
func (i *Index) QueryRadius(ctx context.Context, lat, lng, radiusKm float64) ([]Hit, error) {
	origin := models.Location{Latitude: lat, Longitude: lng}
	if !origin.Valid() {
		return nil, types.ErrInvalidCoordinates
	}
	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return nil, types.ErrInvalidRadius
	}

	locs, err := i.store.Within(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}

	hits := make([]Hit, 0, len(locs))
	for _, l := range locs {
		raw := HaversineDistance(lat, lng, l.Latitude, l.Longitude)
		if raw > radiusKm {
			continue
		}
		hits = append(hits, Hit{
			ID:         l.DriverID,
			DistanceKm: models.Round2(raw),
			Location:   models.Location{Latitude: l.Latitude, Longitude: l.Longitude},
		})
	}

	if len(hits) == 0 {
		return hits, nil
	}

	if i.ratings != nil {
		ids := make([]uuid.UUID, len(hits))
		for n := range hits {
			ids[n] = hits[n].ID
		}
		ratings, err := i.ratings.Ratings(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load ratings: %w", err)
		}
		for n := range hits {
			hits[n].Rating = ratings[hits[n].ID]
		}
	}

	sortHits(hits)
	return hits, nil
}

// Count returns the number of entries within radiusKm.
func (i *Index) Count(ctx context.Context, lat, lng, radiusKm float64) (int, error) {
	hits, err := i.QueryRadius(ctx, lat, lng, radiusKm)
	if err != nil {
		return 0, err
	}
	return len(hits), nil
}

func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].DistanceKm != hits[b].DistanceKm {
			return hits[a].DistanceKm < hits[b].DistanceKm
		}
		if hits[a].Rating != hits[b].Rating {
			return hits[a].Rating > hits[b].Rating
		}
		return hits[a].ID.String() < hits[b].ID.String()
	})
}
