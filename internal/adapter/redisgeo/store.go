// Package redisgeo keeps live positions in a Redis GEO sorted set.
package redisgeo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DriversKey = "dispatch:geo:drivers"
	RidersKey  = "dispatch:geo:riders"
)

// radiusSlack widens the Redis search a little. The geo index re-filters with haversine.
const radiusSlack = 1.01

// Store implements geo.Store. One member per id; GEOADD overwrites the previous position.
// Update times live in a hash next to the set (<key>:updated, id -> unix millis).
type Store struct {
	client     redis.Cmdable
	key        string
	updatedKey string
}

func New(client redis.Cmdable, key string) *Store {
	return &Store{client: client, key: key, updatedKey: key + ":updated"}
}

func (s *Store) Set(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) error {
	const op = "redisgeo.Set"
	err := s.client.GeoAdd(ctx, s.key, &redis.GeoLocation{
		Name:      id.String(),
		Longitude: lng,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.client.HSet(ctx, s.updatedKey, id.String(), strconv.FormatInt(at.UnixMilli(), 10)).Err(); err != nil {
		return fmt.Errorf("%s: failed to store update time: %w", op, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "redisgeo.Delete"
	if err := s.client.ZRem(ctx, s.key, id.String()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.client.HDel(ctx, s.updatedKey, id.String()).Err(); err != nil {
		return fmt.Errorf("%s: failed to drop update time: %w", op, err)
	}
	return nil
}

func (s *Store) Within(ctx context.Context, lat, lng, radiusKm float64) ([]models.DriverLocation, error) {
	const op = "redisgeo.Within"
	res, err := s.client.GeoSearchLocation(ctx, s.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lng,
			Latitude:   lat,
			Radius:     radiusKm * radiusSlack,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.DriverLocation, 0, len(res))
	for _, loc := range res {
		id, err := uuid.Parse(loc.Name)
		if err != nil {
			// чужой ключ в наборе, пропускаем
			continue
		}
		out = append(out, models.DriverLocation{
			DriverID:  id,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		})
	}
	if len(out) == 0 {
		return out, nil
	}

	fields := make([]string, len(out))
	for i := range out {
		fields[i] = out[i].DriverID.String()
	}
	times, err := s.client.HMGet(ctx, s.updatedKey, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read update times: %w", op, err)
	}
	for i, v := range times {
		raw, ok := v.(string)
		if !ok {
			continue // записано до появления хэша
		}
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			out[i].UpdatedAt = time.UnixMilli(ms)
		}
	}
	return out, nil
}
