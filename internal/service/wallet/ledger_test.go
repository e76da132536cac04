package wallet

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu        sync.Mutex
	intents   int
	refunds   []models.Money
	intentErr error
	refundErr error
	delay     time.Duration
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount models.Money, currency string, _ map[string]string) (models.GatewayIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.intentErr != nil {
		return models.GatewayIntent{}, g.intentErr
	}
	g.intents++
	return models.GatewayIntent{ID: "pi_" + uuid.NewString(), ClientSecret: "secret"}, nil
}

func (g *fakeGateway) Refund(_ context.Context, _ string, amount models.Money) error {
	time.Sleep(g.delay)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, amount)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.Notification) {}

type fixture struct {
	store    *memory.Store
	gateway  *fakeGateway
	ledger   *Ledger
	cfg      Config
	riderID  uuid.UUID
	driverID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	gw := &fakeGateway{}
	cfg := DefaultConfig()
	ledger := NewLedger(store.Wallets(), store.Transactions(), store.Payments(), store.Rides(),
		gw, nopNotifier{}, store.TxManager(), cfg, logger.New(io.Discard, "test", "error"))

	return &fixture{
		store:    store,
		gateway:  gw,
		ledger:   ledger,
		cfg:      cfg,
		riderID:  uuid.New(),
		driverID: uuid.New(),
	}
}

func (f *fixture) completedRide(t *testing.T, fare float64) *models.Ride {
	t.Helper()
	now := time.Now()
	ride := &models.Ride{
		ID:           uuid.New(),
		UserID:       f.riderID,
		DriverID:     f.driverID,
		Fare:         models.FareBreakdown{TotalFare: fare},
		Status:       types.RideCompleted,
		PaymentState: types.RidePaymentPending,
		PickupTime:   &now,
		DropTime:     &now,
	}
	require.NoError(t, f.store.Rides().Create(context.Background(), ride))
	return ride
}

func (f *fixture) balance(t *testing.T, owner uuid.UUID) models.Money {
	t.Helper()
	w, err := f.store.Wallets().GetByOwner(context.Background(), owner)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) reconcile(t *testing.T, owner uuid.UUID) {
	t.Helper()
	w, err := f.store.Wallets().GetByOwner(context.Background(), owner)
	require.NoError(t, err)
	_, err = f.ledger.Reconcile(context.Background(), w.ID)
	require.NoError(t, err)
}

func TestSettleRide_SplitsFare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Wallets().Deposit(ctx, f.riderID, models.FromAmount(100))
	require.NoError(t, err)
	ride := f.completedRide(t, 33.33)

	s, err := f.ledger.SettleRide(ctx, f.driverID, f.riderID, ride.ID)
	require.NoError(t, err)

	total := models.FromAmount(33.33)
	assert.Equal(t, total, s.DriverEarnings+s.PlatformEarnings, "split must not leak cents")
	assert.Equal(t, models.Money(2666), s.DriverEarnings)
	assert.Equal(t, types.PaymentCompleted, s.Payment.Status)
	assert.Equal(t, "WALLET_TXN_"+s.Payment.ID.String(), s.Payment.GatewayRef)
	assert.InDelta(t, 0.2, s.Payment.CommissionRate, 1e-9)

	assert.Equal(t, models.FromAmount(100)-total, f.balance(t, f.riderID))
	assert.Equal(t, s.DriverEarnings, f.balance(t, f.driverID))
	assert.Equal(t, s.PlatformEarnings, f.balance(t, f.cfg.PlatformOwnerID))

	for _, owner := range []uuid.UUID{f.riderID, f.driverID, f.cfg.PlatformOwnerID} {
		w, err := f.store.Wallets().GetByOwner(ctx, owner)
		require.NoError(t, err)
		entries, err := f.store.Transactions().ListAll(ctx, w.ID)
		require.NoError(t, err)
		last := entries[len(entries)-1]
		assert.Equal(t, s.Payment.ID.String(), last.ReferenceID)
		require.NotNil(t, last.ParentPaymentID)
		assert.Equal(t, s.Payment.ID, *last.ParentPaymentID)
		f.reconcile(t, owner)
	}

	stored, err := f.store.Rides().Get(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RidePaymentPaid, stored.PaymentState)

	_, err = f.ledger.SettleRide(ctx, f.driverID, f.riderID, ride.ID)
	assert.ErrorIs(t, err, types.ErrAlreadySettled)
	assert.Equal(t, models.FromAmount(100)-total, f.balance(t, f.riderID))
}

func TestSettleRide_InsufficientBalanceWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider, err := f.store.Wallets().Deposit(ctx, f.riderID, models.FromAmount(50))
	require.NoError(t, err)
	ride := f.completedRide(t, 80)

	_, err = f.ledger.SettleRide(ctx, f.driverID, f.riderID, ride.ID)
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)

	assert.Equal(t, models.FromAmount(50), f.balance(t, f.riderID))
	entries, err := f.store.Transactions().ListAll(ctx, rider.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	stored, err := f.store.Rides().Get(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RidePaymentPending, stored.PaymentState)
}

func TestSettleRide_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.completedRide(t, 10)

	_, err := f.ledger.SettleRide(ctx, f.driverID, f.riderID, ride.ID)
	assert.ErrorIs(t, err, types.ErrWalletNotFound)

	_, err = f.store.Wallets().Deposit(ctx, f.riderID, models.FromAmount(100))
	require.NoError(t, err)

	_, err = f.ledger.SettleRide(ctx, uuid.New(), f.riderID, ride.ID)
	assert.ErrorIs(t, err, types.ErrNotRideParticipant)

	ride.Status = types.RideInProgress
	require.NoError(t, f.store.Rides().Create(ctx, ride))
	_, err = f.ledger.SettleRide(ctx, f.driverID, f.riderID, ride.ID)
	assert.ErrorIs(t, err, types.ErrRideNotCompleted)
}

func TestSettleRide_ConcurrentSettlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Wallets().Deposit(ctx, f.riderID, models.FromAmount(100))
	require.NoError(t, err)
	ride := f.completedRide(t, 40)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.SettleRide(ctx, f.driverID, f.riderID, ride.ID)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, types.ErrAlreadySettled)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, models.FromAmount(60), f.balance(t, f.riderID))
	f.reconcile(t, f.riderID)
}

func TestTopUp_TwoPhase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intent, err := f.ledger.TopUp(ctx, f.riderID, models.FromAmount(500))
	require.NoError(t, err)
	assert.NotEmpty(t, intent.GatewayRef)
	assert.Zero(t, f.balance(t, f.riderID), "no money moves before confirmation")

	_, err = f.ledger.ConfirmTopUp(ctx, intent.GatewayRef, models.FromAmount(499))
	assert.ErrorIs(t, err, types.ErrAmountMismatch)
	assert.Zero(t, f.balance(t, f.riderID))

	p, err := f.ledger.ConfirmTopUp(ctx, intent.GatewayRef, models.FromAmount(500))
	require.NoError(t, err)
	assert.Equal(t, types.PaymentCompleted, p.Status)
	assert.Equal(t, models.FromAmount(500), f.balance(t, f.riderID))

	// повторное подтверждение от шлюза
	_, err = f.ledger.ConfirmTopUp(ctx, intent.GatewayRef, models.FromAmount(500))
	require.NoError(t, err)
	assert.Equal(t, models.FromAmount(500), f.balance(t, f.riderID))
	f.reconcile(t, f.riderID)

	_, err = f.ledger.FailTopUp(ctx, intent.GatewayRef, "card declined")
	assert.ErrorIs(t, err, types.ErrPaymentNotPending)
}

func TestTopUp_Bounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, amount := range []models.Money{0, -1, f.cfg.TopUpCeiling, f.cfg.TopUpCeiling + 1} {
		_, err := f.ledger.TopUp(ctx, f.riderID, amount)
		assert.ErrorIs(t, err, types.ErrInvalidAmount, "amount %s", amount)
	}
	assert.Zero(t, f.gateway.intents)

	_, err := f.ledger.TopUp(ctx, f.riderID, f.cfg.TopUpCeiling-1)
	assert.NoError(t, err)
}

func TestTopUp_GatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.intentErr = errors.New("stripe down")

	_, err := f.ledger.TopUp(context.Background(), f.riderID, models.FromAmount(20))
	assert.ErrorIs(t, err, types.ErrGatewayFailed)
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestFailTopUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, err := f.ledger.TopUp(ctx, f.riderID, models.FromAmount(20))
	require.NoError(t, err)

	p, err := f.ledger.FailTopUp(ctx, intent.GatewayRef, "card declined")
	require.NoError(t, err)
	assert.Equal(t, types.PaymentFailed, p.Status)
	assert.Equal(t, "card declined", p.FailureReason)

	_, err = f.ledger.ConfirmTopUp(ctx, intent.GatewayRef, models.FromAmount(20))
	assert.ErrorIs(t, err, types.ErrPaymentNotPending)
	assert.Zero(t, f.balance(t, f.riderID))
}

func TestRefund_RideReversesSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Wallets().Deposit(ctx, f.riderID, models.FromAmount(100))
	require.NoError(t, err)
	ride := f.completedRide(t, 50)
	s, err := f.ledger.SettleRide(ctx, f.driverID, f.riderID, ride.ID)
	require.NoError(t, err)

	res, err := f.ledger.Refund(ctx, s.Payment.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.FromAmount(50), res.Refunded)
	assert.Zero(t, res.Shortfall)
	assert.Equal(t, types.PaymentRefunded, res.Payment.Status)

	assert.Equal(t, models.FromAmount(100), f.balance(t, f.riderID))
	assert.Zero(t, f.balance(t, f.driverID))
	assert.Zero(t, f.balance(t, f.cfg.PlatformOwnerID))

	_, err = f.ledger.Refund(ctx, s.Payment.ID, 0)
	assert.ErrorIs(t, err, types.ErrPaymentNotRefundable)

	for _, owner := range []uuid.UUID{f.riderID, f.driverID, f.cfg.PlatformOwnerID} {
		f.reconcile(t, owner)
	}
}

func TestRefund_ClampsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, err := f.ledger.TopUp(ctx, f.riderID, models.FromAmount(100))
	require.NoError(t, err)
	p, err := f.ledger.ConfirmTopUp(ctx, intent.GatewayRef, models.FromAmount(100))
	require.NoError(t, err)

	// часть денег потрачена на поездку
	ride := f.completedRide(t, 70)
	_, err = f.ledger.SettleRide(ctx, f.driverID, f.riderID, ride.ID)
	require.NoError(t, err)

	res, err := f.ledger.Refund(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.FromAmount(70), res.Shortfall)
	assert.Zero(t, f.balance(t, f.riderID))
	assert.Equal(t, []models.Money{models.FromAmount(100)}, f.gateway.refunds)
	f.reconcile(t, f.riderID)
}

func (f *fixture) confirmedTopUp(t *testing.T, amount float64) *models.Payment {
	t.Helper()
	ctx := context.Background()
	intent, err := f.ledger.TopUp(ctx, f.riderID, models.FromAmount(amount))
	require.NoError(t, err)
	p, err := f.ledger.ConfirmTopUp(ctx, intent.GatewayRef, models.FromAmount(amount))
	require.NoError(t, err)
	return p
}

func TestRefund_TopUpConcurrentRefundsOnce(t *testing.T) {
	f := newFixture(t)
	f.gateway.delay = 20 * time.Millisecond
	p := f.confirmedTopUp(t, 100)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Refund(context.Background(), p.ID, models.FromAmount(40))
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, types.ErrPaymentNotRefundable)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, []models.Money{models.FromAmount(40)}, f.gateway.refunds, "gateway is asked once")
	assert.Equal(t, models.FromAmount(60), f.balance(t, f.riderID))
	f.reconcile(t, f.riderID)
}

func TestRefund_TopUpGatewayFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.confirmedTopUp(t, 30)
	f.gateway.refundErr = errors.New("stripe down")

	_, err := f.ledger.Refund(context.Background(), p.ID, 0)
	assert.ErrorIs(t, err, types.ErrGatewayFailed)
	assert.Equal(t, models.FromAmount(30), f.balance(t, f.riderID))

	cur, err := f.store.Payments().Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentCompleted, cur.Status)
}

func TestRefund_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, err := f.ledger.TopUp(ctx, f.riderID, models.FromAmount(10))
	require.NoError(t, err)

	_, err = f.ledger.Refund(ctx, intent.PaymentID, 0)
	assert.ErrorIs(t, err, types.ErrPaymentNotRefundable, "pending payments are not refundable")

	_, err = f.ledger.ConfirmTopUp(ctx, intent.GatewayRef, models.FromAmount(10))
	require.NoError(t, err)

	_, err = f.ledger.Refund(ctx, intent.PaymentID, models.FromAmount(11))
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = f.ledger.Refund(ctx, intent.PaymentID, -1)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = f.ledger.Refund(ctx, uuid.New(), 0)
	assert.ErrorIs(t, err, types.ErrPaymentNotFound)
}

func TestStatement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.ledger.Statement(ctx, f.riderID, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, s.Wallet, "wallet is created on first access")
	assert.Empty(t, s.Transactions)

	for i := 0; i < 12; i++ {
		_, err := f.store.Wallets().Deposit(ctx, f.riderID, models.Money(i+1))
		require.NoError(t, err)
	}

	s, err = f.ledger.Statement(ctx, f.riderID, 0, 0)
	require.NoError(t, err)
	require.Len(t, s.Transactions, 10)
	assert.Equal(t, models.Money(12), s.Transactions[0].Amount, "newest first")
}

func TestReconcile_DetectsTampering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w, err := f.store.Wallets().Deposit(ctx, f.riderID, models.FromAmount(10))
	require.NoError(t, err)

	require.NoError(t, f.store.Wallets().SetBalance(ctx, w.ID, models.FromAmount(11)))

	_, err = f.ledger.Reconcile(ctx, w.ID)
	assert.ErrorIs(t, err, types.ErrLedgerMismatch)
	assert.ErrorIs(t, err, types.ErrInvariant)
}
