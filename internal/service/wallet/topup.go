package wallet

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/google/uuid"
)

// TopUp opens a gateway intent for amount. The wallet is credited later by ConfirmTopUp.
func (l *Ledger) TopUp(ctx context.Context, userID uuid.UUID, amount models.Money) (*models.TopUpIntent, error) {
	ctx = wrap.WithAction(ctx, types.ActionTopUp)
	ctx = wrap.WithUserID(ctx, userID.String())

	if userID == uuid.Nil {
		return nil, wrap.Error(ctx, types.ErrInvalidID)
	}
	if amount <= 0 || amount >= l.cfg.TopUpCeiling {
		return nil, wrap.Error(ctx, types.ErrInvalidAmount)
	}

	if _, err := l.repos.wallet.GetOrCreate(ctx, userID); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get wallet: %w", err))
	}

	payment := &models.Payment{
		ID:     uuid.New(),
		UserID: userID,
		Kind:   types.PaymentTopUp,
		Amount: amount,
		Status: types.PaymentPending,
	}

	intent, err := l.gateway.CreateIntent(ctx, amount, l.cfg.Currency, map[string]string{
		"payment_id": payment.ID.String(),
		"user_id":    userID.String(),
		"type":       "wallet_topup",
	})
	if err != nil {
		l.l.Error(ctx, "failed to create payment intent", err)
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %v", types.ErrGatewayFailed, err))
	}

	now := l.now()
	payment.GatewayRef = intent.ID
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if err := l.repos.payment.Create(ctx, payment); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to create payment: %w", err))
	}

	l.l.Info(ctx, "top-up intent created", "payment_id", payment.ID, "amount", amount)
	return &models.TopUpIntent{
		PaymentID:    payment.ID,
		GatewayRef:   intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       amount,
	}, nil
}

// ConfirmTopUp credits the wallet of a pending top-up. Confirming an already completed
// top-up is a no-op, so gateway retries are safe.
func (l *Ledger) ConfirmTopUp(ctx context.Context, gatewayRef string, amount models.Money) (*models.Payment, error) {
	ctx = wrap.WithAction(ctx, types.ActionConfirmTopUp)

	p, err := l.repos.payment.GetByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	ctx = wrap.WithUserID(ctx, p.UserID.String())

	if p.Kind != types.PaymentTopUp {
		return nil, wrap.Error(ctx, types.ErrPaymentNotPending)
	}

	w, err := l.repos.wallet.GetOrCreate(ctx, p.UserID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get wallet: %w", err))
	}
	ctx = wrap.WithWalletID(ctx, w.ID.String())

	unlock := l.locks.Lock(w.ID)
	defer unlock()

	var credited bool
	err = l.trm.Do(ctx, func(ctx context.Context) error {
		if p, err = l.repos.payment.GetByGatewayRef(ctx, gatewayRef); err != nil {
			return err
		}
		switch p.Status {
		case types.PaymentCompleted:
			return nil
		case types.PaymentPending:
		default:
			return types.ErrPaymentNotPending
		}
		if amount != p.Amount {
			l.l.Error(ctx, "top-up amount mismatch", types.ErrAmountMismatch, "expected", p.Amount, "got", amount)
			return types.ErrAmountMismatch
		}

		wallets, err := l.repos.wallet.LockForUpdate(ctx, w.ID)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}
		if _, err := l.post(ctx, wallets[w.ID], types.Credit, p.Amount, p.ID, "wallet top-up"); err != nil {
			return err
		}

		p.Status = types.PaymentCompleted
		p.UpdatedAt = l.now()
		if err := l.repos.payment.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		credited = true
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if credited {
		l.notifier.Notify(ctx, notify.WalletToppedUp(p.UserID, p.Amount))
		l.l.Info(ctx, "wallet topped up", "payment_id", p.ID, "amount", p.Amount)
	} else {
		l.l.Debug(ctx, "top-up already confirmed", "payment_id", p.ID)
	}
	return p, nil
}

// FailTopUp marks a pending top-up as failed. No money has moved for it.
func (l *Ledger) FailTopUp(ctx context.Context, gatewayRef, reason string) (*models.Payment, error) {
	ctx = wrap.WithAction(ctx, types.ActionFailTopUp)

	var p *models.Payment
	var failed bool
	err := l.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		if p, err = l.repos.payment.GetByGatewayRef(ctx, gatewayRef); err != nil {
			return err
		}
		switch {
		case p.Status == types.PaymentFailed:
			return nil
		case p.Kind != types.PaymentTopUp || p.Status != types.PaymentPending:
			return types.ErrPaymentNotPending
		}

		p.Status = types.PaymentFailed
		p.FailureReason = reason
		p.UpdatedAt = l.now()
		failed = true
		return l.repos.payment.Update(ctx, p)
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if failed {
		l.notifier.Notify(ctx, notify.PaymentFailed(p.UserID, reason))
		l.l.Warn(ctx, "top-up failed", "payment_id", p.ID, "reason", reason)
	}
	return p, nil
}
