package redisgeo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetAndDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client, DriversKey)
	id := uuid.New()
	at := time.UnixMilli(1700000000123)

	mock.ExpectGeoAdd(DriversKey, &redis.GeoLocation{Name: id.String(), Longitude: 76.9453, Latitude: 43.2383}).SetVal(1)
	mock.ExpectHSet(DriversKey+":updated", id.String(), "1700000000123").SetVal(1)
	mock.ExpectZRem(DriversKey, id.String()).SetVal(1)
	mock.ExpectHDel(DriversKey+":updated", id.String()).SetVal(1)

	require.NoError(t, s.Set(context.Background(), id, 43.2383, 76.9453, at))
	require.NoError(t, s.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Within(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client, DriversKey)
	id := uuid.New()
	stale := uuid.New()

	mock.ExpectGeoSearchLocation(DriversKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  76.9453,
			Latitude:   43.2383,
			Radius:     5 * radiusSlack,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).SetVal([]redis.GeoLocation{
		{Name: id.String(), Longitude: 76.9460, Latitude: 43.2390},
		{Name: "not-a-uuid", Longitude: 76.9460, Latitude: 43.2390},
		{Name: stale.String(), Longitude: 76.9470, Latitude: 43.2395},
	})
	mock.ExpectHMGet(DriversKey+":updated", id.String(), stale.String()).SetVal([]interface{}{"1700000000123", nil})

	got, err := s.Within(context.Background(), 43.2383, 76.9453, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id, got[0].DriverID)
	assert.InDelta(t, 43.2390, got[0].Latitude, 1e-9)
	assert.True(t, got[0].UpdatedAt.Equal(time.UnixMilli(1700000000123)))
	assert.True(t, got[1].UpdatedAt.IsZero(), "missing update time stays zero")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client, RidersKey)

	mock.ExpectGeoSearchLocation(RidersKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  0,
			Latitude:   0,
			Radius:     1 * radiusSlack,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).SetErr(errors.New("connection refused"))

	_, err := s.Within(context.Background(), 0, 0, 1)
	assert.ErrorContains(t, err, "connection refused")
}
