package dispatch

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/fare"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rider       = models.Location{Latitude: 43.2383, Longitude: 76.9453}
	destination = models.Location{Latitude: 43.2567, Longitude: 76.9286}
)

type fixture struct {
	store   *memory.Store
	index   *geo.Index
	matcher *Matcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := logger.New(io.Discard, "test", "error")
	store := memory.New()

	cfg := fare.DefaultConfig()
	cfg.Location = time.UTC
	index := geo.NewIndex(geo.NewMemoryStore(), store.Drivers())

	m := New(store.Drivers(), store.Requests(), store.Rides(), index, fare.New(cfg, nil, nil, l), store.TxManager(), l)
	// среда, 11:00 UTC
	m.now = func() time.Time { return time.Date(2025, 3, 5, 11, 0, 0, 0, time.UTC) }

	return &fixture{store: store, index: index, matcher: m}
}

func (f *fixture) addDriver(t *testing.T, vehicle types.VehicleClass, rating float64, at models.Location, status types.DriverStatus) *models.Driver {
	t.Helper()
	ctx := context.Background()
	d := &models.Driver{
		ID:       uuid.New(),
		Status:   status,
		IsActive: true,
		Rating:   rating,
		Vehicle:  &models.Vehicle{ID: uuid.New(), Type: vehicle},
	}
	require.NoError(t, f.store.Drivers().Create(ctx, d))
	require.NoError(t, f.index.Upsert(ctx, d.ID, at.Latitude, at.Longitude))
	return d
}

func (f *fixture) acceptedRequest(t *testing.T, driverID, riderID uuid.UUID) *models.RideRequest {
	t.Helper()
	req := &models.RideRequest{
		ID:          uuid.New(),
		UserID:      riderID,
		DriverID:    driverID,
		Pickup:      rider,
		Destination: destination,
		DistanceKm:  geo.DistanceKm(rider, destination),
		Status:      types.RequestAccepted,
	}
	require.NoError(t, f.store.Requests().Create(context.Background(), req))
	return req
}

func TestFindCandidates_RankedAndPriced(t *testing.T) {
	f := newFixture(t)
	near := f.addDriver(t, types.EconomyClass, 4.0, models.Location{Latitude: 43.2390, Longitude: 76.9460}, types.DriverAvailable)
	far := f.addDriver(t, types.LuxuryClass, 5.0, models.Location{Latitude: 43.2500, Longitude: 76.9600}, types.DriverAvailable)
	f.addDriver(t, types.EconomyClass, 5.0, models.Location{Latitude: 43.2385, Longitude: 76.9455}, types.DriverUnavailable)

	got, err := f.matcher.FindCandidates(context.Background(), rider, destination, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, near.ID, got[0].Driver.ID)
	assert.Equal(t, far.ID, got[1].Driver.ID)
	assert.Less(t, got[0].DistanceKm, got[1].DistanceKm)

	trip := geo.DistanceKm(rider, destination)
	for _, c := range got {
		assert.InDelta(t, models.Round2(c.DistanceKm+trip), c.TotalDistanceKm, 1e-9)
	}
	assert.Equal(t, models.Round2(trip*10), got[0].Fare.DistanceFare)
	assert.Equal(t, models.Round2(trip*30), got[1].Fare.DistanceFare)
}

func TestFindCandidates_SkipsUnpricedVehicle(t *testing.T) {
	f := newFixture(t)
	economy := f.addDriver(t, types.EconomyClass, 4.0, rider, types.DriverAvailable)
	f.addDriver(t, types.VehicleClass("MINIVAN"), 5.0, rider, types.DriverAvailable)

	got, err := f.matcher.FindCandidates(context.Background(), rider, destination, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, economy.ID, got[0].Driver.ID)
	assert.Equal(t, 10.0, got[0].Fare.BaseFare)
}

func TestFindCandidates_NoneInRange(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, types.EconomyClass, 4.0, models.Location{Latitude: 51.1694, Longitude: 71.4491}, types.DriverAvailable)

	got, err := f.matcher.FindCandidates(context.Background(), rider, destination, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindCandidates_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.matcher.FindCandidates(context.Background(), models.Location{Latitude: 100}, destination, 5)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = f.matcher.FindCandidates(context.Background(), rider, destination, -1)
	assert.ErrorIs(t, err, types.ErrInvalidRadius)
}

func TestCreateRide_BindsDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.addDriver(t, types.PremiumClass, 4.5, rider, types.DriverAvailable)
	riderID := uuid.New()
	req := f.acceptedRequest(t, d.ID, riderID)

	ride, err := f.matcher.CreateRide(ctx, models.CreateRideInput{RequestID: req.ID, DriverID: d.ID, RiderID: riderID})
	require.NoError(t, err)
	assert.Equal(t, types.RideAccepted, ride.Status)
	assert.Equal(t, types.PremiumClass, ride.VehicleType)
	assert.Equal(t, rider, ride.Pickup)
	assert.Equal(t, types.RidePaymentPending, ride.PaymentState)

	driver, err := f.store.Drivers().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DriverUnavailable, driver.Status)

	stored, err := f.store.Requests().Get(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RideID)
	assert.Equal(t, ride.ID, *stored.RideID)

	// заявка уже связана с поездкой
	_, err = f.matcher.CreateRide(ctx, models.CreateRideInput{RequestID: req.ID, DriverID: d.ID, RiderID: riderID})
	assert.ErrorIs(t, err, types.ErrDriverUnavailable)
}

func TestCreateRide_RequiresAcceptedCorrelatedRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.addDriver(t, types.EconomyClass, 4.5, rider, types.DriverAvailable)
	riderID := uuid.New()

	pending := &models.RideRequest{ID: uuid.New(), UserID: riderID, DriverID: d.ID, Status: types.RequestPending}
	require.NoError(t, f.store.Requests().Create(ctx, pending))
	_, err := f.matcher.CreateRide(ctx, models.CreateRideInput{RequestID: pending.ID, DriverID: d.ID, RiderID: riderID})
	assert.ErrorIs(t, err, types.ErrDriverUnavailable)

	accepted := f.acceptedRequest(t, d.ID, riderID)
	_, err = f.matcher.CreateRide(ctx, models.CreateRideInput{RequestID: accepted.ID, DriverID: d.ID, RiderID: uuid.New()})
	assert.ErrorIs(t, err, types.ErrDriverUnavailable)

	_, err = f.matcher.CreateRide(ctx, models.CreateRideInput{RequestID: uuid.New(), DriverID: d.ID, RiderID: riderID})
	assert.ErrorIs(t, err, types.ErrDriverUnavailable)

	driver, err := f.store.Drivers().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DriverAvailable, driver.Status)
}

func TestCreateRide_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	d := f.addDriver(t, types.EconomyClass, 4.5, rider, types.DriverAvailable)

	const n = 8
	reqs := make([]*models.RideRequest, n)
	for i := range reqs {
		reqs[i] = f.acceptedRequest(t, d.ID, uuid.New())
	}

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(req *models.RideRequest) {
			defer wg.Done()
			_, err := f.matcher.CreateRide(context.Background(), models.CreateRideInput{
				RequestID: req.ID, DriverID: d.ID, RiderID: req.UserID,
			})
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, types.ErrDriverUnavailable):
				conflicts.Add(1)
			}
		}(req)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())

	busy, err := f.store.Rides().HasActiveRide(context.Background(), d.ID)
	require.NoError(t, err)
	assert.True(t, busy)
}

func TestNearby_OnlyDispatchable(t *testing.T) {
	f := newFixture(t)
	ok := f.addDriver(t, types.EconomyClass, 4.0, rider, types.DriverAvailable)
	inactive := f.addDriver(t, types.EconomyClass, 4.0, rider, types.DriverAvailable)
	inactive.IsActive = false
	require.NoError(t, f.store.Drivers().Create(context.Background(), inactive))

	got, err := f.matcher.Nearby(context.Background(), rider, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ok.ID, got[0].Driver.ID)
}
