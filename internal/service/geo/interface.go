package geo

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/google/uuid"
)

// Store keeps the last known position per entity.
type Store interface {
	Set(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Within returns entries around the point. It may return entries slightly
	// outside radiusKm; the index filters them with its own distance.
	Within(ctx context.Context, lat, lng, radiusKm float64) ([]models.DriverLocation, error)
}

// RatingSource provides driver ratings used to break distance ties.
type RatingSource interface {
	Ratings(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error)
}
