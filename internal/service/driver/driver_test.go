package driver

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *memory.Store, *geo.MemoryStore, *models.Driver) {
	t.Helper()
	store := memory.New()
	positions := geo.NewMemoryStore()
	svc := New(store.Drivers(), store.Rides(), geo.NewIndex(positions, store.Drivers()), nil,
		store.TxManager(), logger.New(io.Discard, "test", "error"))

	d := &models.Driver{
		ID:       uuid.New(),
		Status:   types.DriverUnavailable,
		IsActive: true,
		Vehicle:  &models.Vehicle{ID: uuid.New(), Type: types.EconomyClass},
	}
	require.NoError(t, store.Drivers().Create(context.Background(), d))
	return svc, store, positions, d
}

func TestGoOnlineOffline(t *testing.T) {
	svc, store, positions, d := setup(t)
	ctx := context.Background()

	got, err := svc.GoOnline(ctx, d.ID, 43.2383, 76.9453)
	require.NoError(t, err)
	assert.Equal(t, types.DriverAvailable, got.Status)

	loc, ok := positions.Get(d.ID)
	require.True(t, ok)
	assert.InDelta(t, 43.2383, loc.Latitude, 1e-9)

	require.NoError(t, svc.GoOffline(ctx, d.ID))
	_, ok = positions.Get(d.ID)
	assert.False(t, ok)

	stored, err := store.Drivers().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DriverUnavailable, stored.Status)
}

func TestGoOnline_Rejections(t *testing.T) {
	svc, store, _, d := setup(t)
	ctx := context.Background()

	_, err := svc.GoOnline(ctx, d.ID, 91, 0)
	assert.ErrorIs(t, err, types.ErrInvalidCoordinates)

	_, err = svc.GoOnline(ctx, uuid.New(), 43, 76)
	assert.ErrorIs(t, err, types.ErrDriverNotFound)

	require.NoError(t, store.Rides().Create(ctx, &models.Ride{
		ID: uuid.New(), DriverID: d.ID, Status: types.RideInProgress, CreatedAt: time.Now(),
	}))
	_, err = svc.GoOnline(ctx, d.ID, 43, 76)
	assert.ErrorIs(t, err, types.ErrDriverAlreadyOnRide)

	err = svc.GoOffline(ctx, d.ID)
	assert.ErrorIs(t, err, types.ErrDriverAlreadyOnRide)
}

func TestHandleLocation_LastWriteWins(t *testing.T) {
	svc, _, positions, d := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleLocation(ctx, models.LocationMessage{DriverID: d.ID, Lat: 43.1, Lng: 76.1}))
	require.NoError(t, svc.HandleLocation(ctx, models.LocationMessage{DriverID: d.ID, Lat: 43.2, Lng: 76.2}))

	loc, ok := positions.Get(d.ID)
	require.True(t, ok)
	assert.InDelta(t, 43.2, loc.Latitude, 1e-9)
	assert.InDelta(t, 76.2, loc.Longitude, 1e-9)

	err := svc.HandleLocation(ctx, models.LocationMessage{DriverID: uuid.New(), Lat: 43, Lng: 76})
	assert.ErrorIs(t, err, types.ErrNotFound)
}
