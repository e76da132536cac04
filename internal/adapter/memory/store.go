// Package memory keeps all repositories in process memory. It backs tests and
// the no-database mode of the service.
package memory

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/google/uuid"
)

// Store holds every table behind one lock. The repository types are views over it.
type Store struct {
	mu sync.RWMutex

	drivers  map[uuid.UUID]*models.Driver
	requests map[uuid.UUID]*models.RideRequest
	rides    map[uuid.UUID]*models.Ride
	ratings  map[uuid.UUID]*models.Rating // by ride id

	wallets       map[uuid.UUID]*models.Wallet
	walletByOwner map[uuid.UUID]uuid.UUID
	entries       map[uuid.UUID][]models.WalletTransaction // by wallet id, creation order

	payments     map[uuid.UUID]*models.Payment
	paymentByRef map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		drivers:       make(map[uuid.UUID]*models.Driver),
		requests:      make(map[uuid.UUID]*models.RideRequest),
		rides:         make(map[uuid.UUID]*models.Ride),
		ratings:       make(map[uuid.UUID]*models.Rating),
		wallets:       make(map[uuid.UUID]*models.Wallet),
		walletByOwner: make(map[uuid.UUID]uuid.UUID),
		entries:       make(map[uuid.UUID][]models.WalletTransaction),
		payments:      make(map[uuid.UUID]*models.Payment),
		paymentByRef:  make(map[string]uuid.UUID),
	}
}

func (s *Store) Drivers() *DriverRepo           { return &DriverRepo{s: s} }
func (s *Store) Requests() *RequestRepo         { return &RequestRepo{s: s} }
func (s *Store) Rides() *RideRepo               { return &RideRepo{s: s} }
func (s *Store) Ratings() *RatingRepo           { return &RatingRepo{s: s} }
func (s *Store) Wallets() *WalletRepo           { return &WalletRepo{s: s} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }
func (s *Store) Payments() *PaymentRepo         { return &PaymentRepo{s: s} }

// write runs fn under the write lock and registers undo with the transaction in ctx, if any.
// fn returns the undo step; a nil step means nothing changed.
func (s *Store) write(ctx context.Context, fn func() (undo func(), err error)) error {
	s.mu.Lock()
	undo, err := fn()
	s.mu.Unlock()

	if err != nil || undo == nil {
		return err
	}
	if tx, ok := ctx.Value(txKey{}).(*undoLog); ok {
		tx.add(undo)
	}
	return nil
}

/*===================== Transactions ========================*/

type txKey struct{}

type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (u *undoLog) add(step func()) {
	u.mu.Lock()
	u.steps = append(u.steps, step)
	u.mu.Unlock()
}

// TxManager gives all-or-nothing semantics to a group of writes by undoing
// them in reverse order on failure. Uncommitted writes are visible to other
// goroutines; callers that need isolation hold their own keyed locks.
type TxManager struct {
	s *Store
}

func (s *Store) TxManager() *TxManager {
	return &TxManager{s: s}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	tx := &undoLog{}
	ctx = context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			m.rollback(tx)
			panic(p)
		}
		if err != nil {
			m.rollback(tx)
		}
	}()

	return fn(ctx)
}

func (m *TxManager) rollback(tx *undoLog) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for i := len(tx.steps) - 1; i >= 0; i-- {
		tx.steps[i]()
	}
	tx.steps = nil
}
