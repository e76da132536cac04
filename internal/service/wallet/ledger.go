package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/pkg/keylock"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/google/uuid"
)

/*
Ledger owns wallet balances. Every balance change is an append-only entry
whose before/after balances chain, so a wallet can be replayed from its entries.
Writes to a wallet are serialized by an in-process lock and by row locks taken
in id order inside the transaction.
*/
type Ledger struct {
	repos    repos
	gateway  Gateway
	notifier Notifier
	trm      trm.TxManager
	locks    *keylock.Keyed[uuid.UUID]
	cfg      Config
	now      func() time.Time
	l        logger.Logger
}

type repos struct {
	wallet  WalletRepo
	entry   TransactionRepo
	payment PaymentRepo
	ride    RideRepo
}

func NewLedger(walletRepo WalletRepo, entryRepo TransactionRepo, paymentRepo PaymentRepo, rideRepo RideRepo, gateway Gateway, notifier Notifier, trm trm.TxManager, cfg Config, l logger.Logger) *Ledger {
	return &Ledger{
		repos: repos{
			wallet:  walletRepo,
			entry:   entryRepo,
			payment: paymentRepo,
			ride:    rideRepo,
		},
		gateway:  gateway,
		notifier: notifier,
		trm:      trm,
		locks:    keylock.New[uuid.UUID](),
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		l:        l,
	}
}

// SettleRide charges the rider the ride fare and splits it between the driver and the platform.
// Nothing is written when the rider cannot cover the fare.
func (l *Ledger) SettleRide(ctx context.Context, driverID, riderID, rideID uuid.UUID) (settlement *models.Settlement, err error) {
	ctx = wrap.WithAction(ctx, types.ActionSettleRide)
	ctx = wrap.WithRideID(ctx, rideID.String())
	defer func() { metrics.RecordSettlement(err) }()

	if driverID == uuid.Nil || riderID == uuid.Nil || rideID == uuid.Nil {
		return nil, wrap.Error(ctx, types.ErrInvalidID)
	}

	rider, err := l.repos.wallet.GetByOwner(ctx, riderID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	ctx = wrap.WithWalletID(ctx, rider.ID.String())

	driver, err := l.repos.wallet.GetOrCreate(ctx, driverID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get driver wallet: %w", err))
	}
	platform, err := l.repos.wallet.GetOrCreate(ctx, l.cfg.PlatformOwnerID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get platform wallet: %w", err))
	}

	unlock := l.locks.LockAll(rider.ID, driver.ID, platform.ID)
	defer unlock()

	var driverShare models.Money

	fn := func(ctx context.Context) error {
		ride, err := l.repos.ride.GetForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.UserID != riderID || ride.DriverID != driverID {
			return types.ErrNotRideParticipant
		}
		if ride.Status != types.RideCompleted {
			return types.ErrRideNotCompleted
		}
		if ride.PaymentState == types.RidePaymentPaid {
			return types.ErrAlreadySettled
		}

		total := models.FromAmount(ride.Fare.TotalFare)
		if total <= 0 {
			return types.ErrInvalidAmount
		}

		wallets, err := l.repos.wallet.LockForUpdate(ctx, rider.ID, driver.ID, platform.ID)
		if err != nil {
			return fmt.Errorf("failed to lock wallets: %w", err)
		}
		riderW, driverW, platformW := wallets[rider.ID], wallets[driver.ID], wallets[platform.ID]

		if riderW.Balance < total {
			return types.ErrInsufficientBalance
		}

		var platformShare models.Money
		driverShare, platformShare = models.SplitFare(total, l.cfg.CommissionRate)

		now := l.now()
		payment := &models.Payment{
			ID:             uuid.New(),
			UserID:         riderID,
			RideID:         &rideID,
			Kind:           types.PaymentRide,
			Amount:         total,
			Status:         types.PaymentPending,
			CommissionRate: l.cfg.CommissionRate,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := l.repos.payment.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		if _, err := l.post(ctx, riderW, types.Debit, total, payment.ID, "ride fare"); err != nil {
			return err
		}
		if _, err := l.post(ctx, driverW, types.Credit, driverShare, payment.ID, "ride earnings"); err != nil {
			return err
		}
		if _, err := l.post(ctx, platformW, types.Credit, platformShare, payment.ID, "platform commission"); err != nil {
			return err
		}

		payment.Status = types.PaymentCompleted
		payment.GatewayRef = "WALLET_TXN_" + payment.ID.String()
		payment.UpdatedAt = l.now()
		if err := l.repos.payment.Update(ctx, payment); err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}

		if err := l.repos.ride.SetPaymentState(ctx, rideID, types.RidePaymentPaid); err != nil {
			return fmt.Errorf("failed to mark ride paid: %w", err)
		}

		settlement = &models.Settlement{
			Payment:          payment,
			RiderBalance:     riderW.Balance,
			DriverEarnings:   driverShare,
			PlatformEarnings: platformShare,
		}
		return nil
	}

	if err := l.trm.Do(ctx, fn); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	l.notifier.Notify(ctx, notify.RiderPaid(riderID, settlement.Payment.Amount))
	l.notifier.Notify(ctx, notify.DriverPaid(driverID, driverShare))

	l.l.Info(ctx, "ride settled", "payment_id", settlement.Payment.ID,
		"amount", settlement.Payment.Amount, "driver_share", driverShare, "platform_share", settlement.PlatformEarnings)
	return settlement, nil
}

// post appends one entry to w and moves its balance. w must be locked by the caller.
func (l *Ledger) post(ctx context.Context, w *models.Wallet, typ types.TransactionType, amount models.Money, paymentID uuid.UUID, description string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, nil
	}

	entry := &models.WalletTransaction{
		ID:              uuid.New(),
		WalletID:        w.ID,
		Amount:          amount,
		Type:            typ,
		BalanceBefore:   w.Balance,
		ReferenceID:     paymentID.String(),
		ParentPaymentID: &paymentID,
		Description:     description,
		CreatedAt:       l.now(),
	}
	entry.BalanceAfter = entry.Apply(w.Balance)
	if entry.BalanceAfter < 0 {
		return nil, types.ErrInsufficientBalance
	}

	if err := l.repos.entry.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if err := l.repos.wallet.SetBalance(ctx, w.ID, entry.BalanceAfter); err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	w.Balance = entry.BalanceAfter
	return entry, nil
}

// debitClamped takes up to amount from w without going below zero and returns what it could not take.
func (l *Ledger) debitClamped(ctx context.Context, w *models.Wallet, amount models.Money, paymentID uuid.UUID, description string) (models.Money, error) {
	take := max(min(amount, w.Balance), 0)
	if _, err := l.post(ctx, w, types.Debit, take, paymentID, description); err != nil {
		return 0, err
	}
	return amount - take, nil
}

// Statement returns the wallet of owner with its latest entries. The wallet is created on first access.
func (l *Ledger) Statement(ctx context.Context, ownerID uuid.UUID, limit, offset int) (*models.Statement, error) {
	ctx = wrap.WithAction(ctx, types.ActionStatement)
	ctx = wrap.WithUserID(ctx, ownerID.String())

	if ownerID == uuid.Nil {
		return nil, wrap.Error(ctx, types.ErrInvalidID)
	}
	if limit <= 0 {
		limit = l.cfg.StatementLimit
	}
	if offset < 0 {
		offset = 0
	}

	w, err := l.repos.wallet.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get wallet: %w", err))
	}

	entries, err := l.repos.entry.List(ctx, w.ID, limit, offset)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to list wallet transactions: %w", err))
	}
	if entries == nil {
		entries = []models.WalletTransaction{}
	}

	return &models.Statement{Wallet: w, Transactions: entries}, nil
}

// Reconcile replays the wallet's entries and checks the result against the stored balance.
func (l *Ledger) Reconcile(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	ctx = wrap.WithAction(ctx, types.ActionReconcile)
	ctx = wrap.WithWalletID(ctx, walletID.String())

	var w *models.Wallet
	// balance and entries must come from one snapshot
	err := l.trm.Do(trm.WithSnapshot(ctx), func(ctx context.Context) error {
		var err error
		if w, err = l.repos.wallet.Get(ctx, walletID); err != nil {
			return err
		}
		entries, err := l.repos.entry.ListAll(ctx, walletID)
		if err != nil {
			return fmt.Errorf("failed to list wallet transactions: %w", err)
		}

		balance, bad := models.Replay(entries)
		if bad >= 0 {
			l.l.Error(ctx, "ledger entry does not chain", types.ErrLedgerMismatch, "entry_id", entries[bad].ID, "index", bad)
			return types.ErrLedgerMismatch
		}
		if balance != w.Balance {
			l.l.Error(ctx, "replayed balance differs from wallet", types.ErrLedgerMismatch, "replayed", balance, "stored", w.Balance)
			return types.ErrLedgerMismatch
		}
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	return w, nil
}
