package memory

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type WalletRepo struct {
	s *Store
}

func (r *WalletRepo) Get(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.wallets[id]
	if !ok {
		return nil, types.ErrWalletNotFound
	}
	c := *w
	return &c, nil
}

func (r *WalletRepo) GetByOwner(_ context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.walletByOwner[ownerID]
	if !ok {
		return nil, types.ErrWalletNotFound
	}
	c := *r.s.wallets[id]
	return &c, nil
}

// GetOrCreate returns the owner's wallet, creating an empty one if needed.
// Creation is not undone on rollback: an empty wallet carries no money.
func (r *WalletRepo) GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	var out models.Wallet
	err := r.s.write(ctx, func() (func(), error) {
		if id, ok := r.s.walletByOwner[ownerID]; ok {
			out = *r.s.wallets[id]
			return nil, nil
		}
		now := time.Now()
		w := &models.Wallet{ID: uuid.New(), OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
		r.s.wallets[w.ID] = w
		r.s.walletByOwner[ownerID] = w.ID
		out = *w
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *WalletRepo) LockForUpdate(_ context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID]*models.Wallet, len(ids))
	for _, id := range ids {
		w, ok := r.s.wallets[id]
		if !ok {
			return nil, types.ErrWalletNotFound
		}
		c := *w
		out[id] = &c
	}
	return out, nil
}

func (r *WalletRepo) SetBalance(ctx context.Context, id uuid.UUID, balance models.Money) error {
	return r.s.write(ctx, func() (func(), error) {
		w, ok := r.s.wallets[id]
		if !ok {
			return nil, types.ErrWalletNotFound
		}
		prev := *w
		w.Balance = balance
		w.UpdatedAt = time.Now()
		return func() { *r.s.wallets[id] = prev }, nil
	})
}

// Deposit seeds a wallet with a chained CREDIT entry. Used by tests and dev fixtures.
func (r *WalletRepo) Deposit(ctx context.Context, ownerID uuid.UUID, amount models.Money) (*models.Wallet, error) {
	w, err := r.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	err = r.s.write(ctx, func() (func(), error) {
		stored := r.s.wallets[w.ID]
		entry := models.WalletTransaction{
			ID:            uuid.New(),
			WalletID:      w.ID,
			Amount:        amount,
			Type:          types.Credit,
			BalanceBefore: stored.Balance,
			BalanceAfter:  stored.Balance + amount,
			ReferenceID:   "deposit",
			Description:   "deposit",
			CreatedAt:     time.Now(),
		}
		r.s.entries[w.ID] = append(r.s.entries[w.ID], entry)
		stored.Balance = entry.BalanceAfter
		*w = *stored
		return nil, nil
	})
	return w, err
}

type TransactionRepo struct {
	s *Store
}

func (r *TransactionRepo) Append(ctx context.Context, t *models.WalletTransaction) error {
	return r.s.write(ctx, func() (func(), error) {
		n := len(r.s.entries[t.WalletID])
		r.s.entries[t.WalletID] = append(r.s.entries[t.WalletID], *t)
		return func() { r.s.entries[t.WalletID] = r.s.entries[t.WalletID][:n] }, nil
	})
}

func (r *TransactionRepo) List(_ context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.s.entries[walletID]
	out := make([]models.WalletTransaction, 0, limit)
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (r *TransactionRepo) ListAll(_ context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return append([]models.WalletTransaction(nil), r.s.entries[walletID]...), nil
}

type PaymentRepo struct {
	s *Store
}

func (r *PaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.s.write(ctx, func() (func(), error) {
		c := *p
		r.s.payments[p.ID] = &c
		if p.GatewayRef != "" {
			r.s.paymentByRef[p.GatewayRef] = p.ID
		}
		return func() {
			delete(r.s.payments, p.ID)
			delete(r.s.paymentByRef, p.GatewayRef)
		}, nil
	})
}

func (r *PaymentRepo) Get(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, types.ErrPaymentNotFound
	}
	c := *p
	return &c, nil
}

func (r *PaymentRepo) GetByGatewayRef(ctx context.Context, ref string) (*models.Payment, error) {
	r.s.mu.RLock()
	id, ok := r.s.paymentByRef[ref]
	r.s.mu.RUnlock()

	if !ok {
		return nil, types.ErrPaymentNotFound
	}
	return r.Get(ctx, id)
}

func (r *PaymentRepo) Update(ctx context.Context, p *models.Payment) error {
	return r.s.write(ctx, func() (func(), error) {
		cur, ok := r.s.payments[p.ID]
		if !ok {
			return nil, types.ErrPaymentNotFound
		}
		prev := *cur
		*cur = *p
		if p.GatewayRef != "" {
			r.s.paymentByRef[p.GatewayRef] = p.ID
		}
		return func() {
			*r.s.payments[p.ID] = prev
			if prev.GatewayRef != p.GatewayRef {
				delete(r.s.paymentByRef, p.GatewayRef)
			}
		}, nil
	})
}
