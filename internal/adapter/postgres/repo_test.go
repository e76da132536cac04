package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dsn string

func (d dsn) GetDSN() string { return string(d) }

// openDB connects to DISPATCH_TEST_DSN and applies migrations. Tests skip without it.
func openDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DISPATCH_TEST_DSN")
	if url == "" {
		t.Skip("DISPATCH_TEST_DSN not set")
	}

	require.NoError(t, postgres.Migrate("file://../../../migrations", dsn(url)))
	db, err := postgres.New(context.Background(), dsn(url))
	require.NoError(t, err)
	t.Cleanup(db.Pool.Close)
	return db.Pool
}

func seedDriver(t *testing.T, repo *DriverRepo) *models.Driver {
	t.Helper()
	d := &models.Driver{
		ID:       uuid.New(),
		Name:     "test",
		Status:   types.DriverAvailable,
		IsActive: true,
		Vehicle:  &models.Vehicle{ID: uuid.New(), Type: types.EconomyClass, Plate: "777ABC02"},
	}
	require.NoError(t, repo.Create(context.Background(), d))
	return d
}

func TestDriverRepo_CompareAndSetStatus(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	drivers := NewDriverRepo(db)
	d := seedDriver(t, drivers)

	ok, err := drivers.CompareAndSetStatus(ctx, d.ID, types.DriverAvailable, types.DriverUnavailable)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = drivers.CompareAndSetStatus(ctx, d.ID, types.DriverAvailable, types.DriverUnavailable)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = drivers.CompareAndSetStatus(ctx, uuid.New(), types.DriverAvailable, types.DriverUnavailable)
	assert.ErrorIs(t, err, types.ErrDriverNotFound)

	got, err := drivers.Get(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Vehicle)
	assert.Equal(t, "777ABC02", got.Vehicle.Plate)
}

func TestRequestRepo_FinalizeOnce(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	d := seedDriver(t, NewDriverRepo(db))
	requests := NewRequestRepo(db)

	now := time.Now().UTC().Truncate(time.Millisecond)
	req := &models.RideRequest{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		DriverID:    d.ID,
		VehicleType: types.EconomyClass,
		Pickup:      models.Location{Latitude: 43.2383, Longitude: 76.9453},
		Destination: models.Location{Latitude: 43.2567, Longitude: 76.9286},
		DistanceKm:  2.5,
		Fare:        models.FareBreakdown{BaseFare: 10, DistanceFare: 25, TotalFare: 27},
		Status:      types.RequestPending,
		ExpiresAt:   now.Add(2 * time.Minute),
		CreatedAt:   now,
	}
	require.NoError(t, requests.Create(ctx, req))

	ok, err := requests.Finalize(ctx, req.ID, types.RequestAccepted, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = requests.Finalize(ctx, req.ID, types.RequestTimedOut, now)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestAccepted, got.Status)
	assert.Equal(t, req.Fare, got.Fare)
}

func TestWalletRepo_RollbackKeepsBalance(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	wallets := NewWalletRepo(db)
	tm := trm.New(db)

	w, err := wallets.GetOrCreate(ctx, uuid.New())
	require.NoError(t, err)
	again, err := wallets.GetOrCreate(ctx, w.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)

	_, err = wallets.LockForUpdate(ctx, w.ID)
	assert.Error(t, err, "row locks need a transaction")

	err = tm.Do(ctx, func(ctx context.Context) error {
		locked, err := wallets.LockForUpdate(ctx, w.ID, w.ID)
		if err != nil {
			return err
		}
		if err := wallets.SetBalance(ctx, w.ID, locked[w.ID].Balance+500); err != nil {
			return err
		}
		return types.ErrInsufficientBalance
	})
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)

	got, err := wallets.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
}
