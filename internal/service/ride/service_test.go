package ride

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/wallet"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopGateway struct{}

func (nopGateway) CreateIntent(context.Context, models.Money, string, map[string]string) (models.GatewayIntent, error) {
	return models.GatewayIntent{ID: "pi_test"}, nil
}

func (nopGateway) Refund(context.Context, string, models.Money) error { return nil }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg models.Notification) {
	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) categories() []types.NotificationCategory {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.NotificationCategory, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.Category
	}
	return out
}

type fixture struct {
	store    *memory.Store
	svc      *RideService
	notifier *recordingNotifier
	clock    time.Time
	driver   *models.Driver
	riderID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := logger.New(io.Discard, "test", "error")
	store := memory.New()
	tm := store.TxManager()
	notifier := &recordingNotifier{}

	ledger := wallet.NewLedger(store.Wallets(), store.Transactions(), store.Payments(), store.Rides(),
		nopGateway{}, notifier, tm, wallet.DefaultConfig(), l)

	f := &fixture{
		store:    store,
		notifier: notifier,
		clock:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		riderID:  uuid.New(),
	}
	f.svc = NewRideService(store.Rides(), store.Drivers(), store.Ratings(), ledger, notifier, tm, l)
	f.svc.now = func() time.Time { return f.clock }

	f.driver = &models.Driver{
		ID:       uuid.New(),
		Status:   types.DriverUnavailable,
		IsActive: true,
		Vehicle:  &models.Vehicle{ID: uuid.New(), Type: types.EconomyClass},
	}
	require.NoError(t, store.Drivers().Create(context.Background(), f.driver))
	return f
}

func (f *fixture) acceptedRide(t *testing.T, fare float64) *models.Ride {
	t.Helper()
	ride := &models.Ride{
		ID:           uuid.New(),
		RequestID:    uuid.New(),
		UserID:       f.riderID,
		DriverID:     f.driver.ID,
		VehicleType:  types.EconomyClass,
		DistanceKm:   12.5,
		Fare:         models.FareBreakdown{BaseFare: 10, DistanceFare: fare, TotalFare: fare},
		Status:       types.RideAccepted,
		PaymentState: types.RidePaymentPending,
		CreatedAt:    f.clock,
	}
	require.NoError(t, f.store.Rides().Create(context.Background(), ride))
	return ride
}

func TestMarkPickup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.acceptedRide(t, 125)

	_, err := f.svc.MarkPickup(ctx, ride.ID, uuid.New())
	assert.ErrorIs(t, err, types.ErrNotRideParticipant)

	got, err := f.svc.MarkPickup(ctx, ride.ID, f.driver.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RideInProgress, got.Status)
	require.NotNil(t, got.PickupTime)
	assert.Equal(t, f.clock, *got.PickupTime)
	assert.Contains(t, f.notifier.categories(), types.NotifyRideStarted)

	_, err = f.svc.MarkPickup(ctx, ride.ID, f.driver.ID)
	assert.ErrorIs(t, err, types.ErrInvalidRideTransition)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestCompleteRide_SettlesAndUpdatesTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.acceptedRide(t, 125)

	_, err := f.store.Wallets().Deposit(ctx, f.riderID, models.FromAmount(200))
	require.NoError(t, err)

	_, err = f.svc.MarkPickup(ctx, ride.ID, f.driver.ID)
	require.NoError(t, err)

	f.clock = f.clock.Add(17*time.Minute + 50*time.Second)
	res, err := f.svc.CompleteRide(ctx, ride.ID, f.driver.ID)
	require.NoError(t, err)
	assert.Empty(t, res.PaymentErr)
	require.NotNil(t, res.Settlement)

	assert.Equal(t, types.RideCompleted, res.Ride.Status)
	assert.Equal(t, 17, res.Ride.DurationMinutes, "duration is truncated to whole minutes")
	assert.Equal(t, types.RidePaymentPaid, res.Ride.PaymentState)

	assert.Equal(t, models.FromAmount(100), res.Settlement.DriverEarnings)
	assert.Equal(t, models.FromAmount(25), res.Settlement.PlatformEarnings)
	assert.Equal(t, models.FromAmount(75), res.Settlement.RiderBalance)

	driver, err := f.store.Drivers().Get(ctx, f.driver.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DriverAvailable, driver.Status)
	assert.Equal(t, 1, driver.Totals.Rides)
	assert.InDelta(t, 12.5, driver.Totals.DistanceKm, 1e-9)
	assert.Equal(t, 17, driver.Totals.Minutes)
	assert.Equal(t, models.FromAmount(125), driver.Totals.Earnings, "totals grow by the full fare")

	stored, err := f.store.Rides().Get(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RidePaymentPaid, stored.PaymentState)

	_, err = f.svc.CompleteRide(ctx, ride.ID, f.driver.ID)
	assert.ErrorIs(t, err, types.ErrInvalidRideTransition)
}

func TestCompleteRide_SettlementFailureFlagsUnpaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.acceptedRide(t, 80)

	_, err := f.store.Wallets().Deposit(ctx, f.riderID, models.FromAmount(50))
	require.NoError(t, err)

	_, err = f.svc.MarkPickup(ctx, ride.ID, f.driver.ID)
	require.NoError(t, err)
	f.clock = f.clock.Add(10 * time.Minute)

	res, err := f.svc.CompleteRide(ctx, ride.ID, f.driver.ID)
	require.NoError(t, err, "completion stands even when payment fails")
	assert.Nil(t, res.Settlement)
	assert.Contains(t, res.PaymentErr, "insufficient balance")

	stored, err := f.store.Rides().Get(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RideCompleted, stored.Status)
	assert.Equal(t, types.RidePaymentUnpaid, stored.PaymentState)

	w, err := f.store.Wallets().GetByOwner(ctx, f.riderID)
	require.NoError(t, err)
	assert.Equal(t, models.FromAmount(50), w.Balance)
	assert.Contains(t, f.notifier.categories(), types.NotifyPaymentFailed)
}

func TestCompleteRide_PickupTimeMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.acceptedRide(t, 50)
	ride.Status = types.RideInProgress
	require.NoError(t, f.store.Rides().Create(ctx, ride))

	_, err := f.svc.CompleteRide(ctx, ride.ID, f.driver.ID)
	assert.ErrorIs(t, err, types.ErrPickupTimeMissing)
	assert.ErrorIs(t, err, types.ErrInvariant)

	stored, err := f.store.Rides().Get(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RideInProgress, stored.Status)

	driver, err := f.store.Drivers().Get(ctx, f.driver.ID)
	require.NoError(t, err)
	assert.Zero(t, driver.Totals.Rides)
	assert.Equal(t, types.DriverUnavailable, driver.Status)
}

func TestCompleteRide_FromAccepted(t *testing.T) {
	f := newFixture(t)
	ride := f.acceptedRide(t, 50)

	_, err := f.svc.CompleteRide(context.Background(), ride.ID, f.driver.ID)
	assert.ErrorIs(t, err, types.ErrInvalidRideTransition)
}

func TestRateRide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.acceptedRide(t, 50)

	_, err := f.svc.RateRide(ctx, ride.ID, f.riderID, 5, "")
	assert.ErrorIs(t, err, types.ErrRideNotCompleted)

	ride.Status = types.RideCompleted
	require.NoError(t, f.store.Rides().Create(ctx, ride))

	tests := []struct {
		name  string
		user  uuid.UUID
		score int
		err   error
	}{
		{"zero", f.riderID, 0, types.ErrInvalidRating},
		{"six", f.riderID, 6, types.ErrInvalidRating},
		{"stranger", uuid.New(), 4, types.ErrNotRideParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RateRide(ctx, ride.ID, tt.user, tt.score, "")
			assert.ErrorIs(t, err, tt.err)
		})
	}

	rating, err := f.svc.RateRide(ctx, ride.ID, f.riderID, 4, "friendly")
	require.NoError(t, err)
	assert.Equal(t, f.driver.ID, rating.DriverID)

	driver, err := f.store.Drivers().Get(ctx, f.driver.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, driver.Rating, 1e-9)

	_, err = f.svc.RateRide(ctx, ride.ID, f.riderID, 2, "")
	assert.ErrorIs(t, err, types.ErrRideAlreadyRated)
}
