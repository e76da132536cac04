package wallet

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/google/uuid"
)

/*
Refund returns amount of a completed payment (zero means the full amount).
A ride refund credits the rider and reverses the driver and platform shares in
the proportion fixed at settlement. A top-up refund goes through the gateway
first and then debits the wallet. Reversal debits never take a balance below
zero; what could not be taken is reported as Shortfall.
*/
func (l *Ledger) Refund(ctx context.Context, paymentID uuid.UUID, amount models.Money) (*models.Refund, error) {
	ctx = wrap.WithAction(ctx, types.ActionRefund)

	if amount < 0 {
		return nil, wrap.Error(ctx, types.ErrInvalidAmount)
	}

	p, err := l.repos.payment.Get(ctx, paymentID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	ctx = wrap.WithUserID(ctx, p.UserID.String())

	if p.Status != types.PaymentCompleted {
		return nil, wrap.Error(ctx, types.ErrPaymentNotRefundable)
	}
	if amount == 0 {
		amount = p.Amount
	}
	if amount > p.Amount {
		return nil, wrap.Error(ctx, types.ErrInvalidAmount)
	}

	var res *models.Refund
	switch p.Kind {
	case types.PaymentRide:
		res, err = l.refundRide(ctx, p, amount)
	case types.PaymentTopUp:
		res, err = l.refundTopUp(ctx, p, amount)
	default:
		err = types.ErrPaymentNotRefundable
	}
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if res.Shortfall > 0 {
		metrics.LedgerAnomalies.Inc()
		l.l.Warn(ctx, "refund reversal clamped at zero balance", "payment_id", p.ID, "shortfall", res.Shortfall)
	}

	l.notifier.Notify(ctx, notify.Refunded(p.UserID, amount))
	l.l.Info(ctx, "payment refunded", "payment_id", p.ID, "amount", amount)
	return res, nil
}

func (l *Ledger) refundRide(ctx context.Context, p *models.Payment, amount models.Money) (*models.Refund, error) {
	if p.RideID == nil {
		return nil, types.ErrPaymentNotRefundable
	}

	ride, err := l.repos.ride.GetForUpdate(ctx, *p.RideID)
	if err != nil {
		return nil, err
	}

	rider, err := l.repos.wallet.GetByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	driver, err := l.repos.wallet.GetOrCreate(ctx, ride.DriverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get driver wallet: %w", err)
	}
	platform, err := l.repos.wallet.GetOrCreate(ctx, l.cfg.PlatformOwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get platform wallet: %w", err)
	}

	unlock := l.locks.LockAll(rider.ID, driver.ID, platform.ID)
	defer unlock()

	driverPart, platformPart := models.SplitFare(amount, p.CommissionRate)
	res := &models.Refund{Refunded: amount}

	err = l.trm.Do(ctx, func(ctx context.Context) error {
		if err := l.recheck(ctx, p); err != nil {
			return err
		}

		wallets, err := l.repos.wallet.LockForUpdate(ctx, rider.ID, driver.ID, platform.ID)
		if err != nil {
			return fmt.Errorf("failed to lock wallets: %w", err)
		}

		if _, err := l.post(ctx, wallets[rider.ID], types.Credit, amount, p.ID, "ride refund"); err != nil {
			return err
		}
		short, err := l.debitClamped(ctx, wallets[driver.ID], driverPart, p.ID, "ride refund reversal")
		if err != nil {
			return err
		}
		res.Shortfall += short
		if short, err = l.debitClamped(ctx, wallets[platform.ID], platformPart, p.ID, "commission refund reversal"); err != nil {
			return err
		}
		res.Shortfall += short

		return l.markRefunded(ctx, p, amount)
	})
	if err != nil {
		return nil, err
	}

	res.Payment = p
	return res, nil
}

func (l *Ledger) refundTopUp(ctx context.Context, p *models.Payment, amount models.Money) (*models.Refund, error) {
	w, err := l.repos.wallet.GetByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(w.ID)
	defer unlock()

	res := &models.Refund{Refunded: amount}
	refunded := false
	err = l.trm.Do(ctx, func(ctx context.Context) error {
		// статус проверяется до обращения к шлюзу, иначе второй возврат уйдёт в шлюз
		if err := l.recheck(ctx, p); err != nil {
			return err
		}

		wallets, err := l.repos.wallet.LockForUpdate(ctx, w.ID)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}

		if err := l.gateway.Refund(ctx, p.GatewayRef, amount); err != nil {
			l.l.Error(ctx, "gateway refund failed", err, "payment_id", p.ID)
			return fmt.Errorf("%w: %v", types.ErrGatewayFailed, err)
		}
		refunded = true

		if res.Shortfall, err = l.debitClamped(ctx, wallets[w.ID], amount, p.ID, "top-up refund"); err != nil {
			return err
		}

		return l.markRefunded(ctx, p, amount)
	})
	if err != nil {
		if refunded {
			// деньги уже вернулись через шлюз, кошелёк не списан
			l.l.Error(ctx, "wallet debit after gateway refund failed", err, "payment_id", p.ID)
		}
		return nil, err
	}

	res.Payment = p
	return res, nil
}

// recheck re-reads the payment inside the transaction (row-locked on postgres) and
// requires it to still be COMPLETED.
func (l *Ledger) recheck(ctx context.Context, p *models.Payment) error {
	cur, err := l.repos.payment.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if cur.Status != types.PaymentCompleted {
		return types.ErrPaymentNotRefundable
	}
	return nil
}

func (l *Ledger) markRefunded(ctx context.Context, p *models.Payment, amount models.Money) error {
	p.Status = types.PaymentRefunded
	p.RefundAmount = amount
	p.UpdatedAt = l.now()
	if err := l.repos.payment.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to mark payment refunded: %w", err)
	}
	return nil
}
