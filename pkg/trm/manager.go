package trm

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Manager runs functions inside pgx transactions.
// Repositories pick the transaction up from the context (see TxKey).
type Manager struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Manager {
	return &Manager{db: db}
}

type (
	ctxKeyTx     struct{}
	ctxTxOptions struct{}
)

var (
	TxKey     = ctxKeyTx{}
	txOptions = ctxTxOptions{}
)

// Do executes fn within a transaction. If ctx already carries a transaction, fn joins it
// and the outermost Do owns commit and rollback.
// If fn returns an error or panics the transaction is rolled back, otherwise committed.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if tx, ok := ctx.Value(TxKey).(pgx.Tx); ok && tx != nil {
		return fn(ctx)
	}

	opts, _ := ctx.Value(txOptions).(pgx.TxOptions)
	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to start new transaction: %w", err)
	}
	ctx = context.WithValue(ctx, TxKey, tx)

	defer func() {
		// rollback must run even if the caller's ctx is already cancelled
		rbCtx := context.WithoutCancel(ctx)
		if p := recover(); p != nil {
			_ = tx.Rollback(rbCtx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(rbCtx); rbErr != nil {
				err = fmt.Errorf("failed to rollback tx: %v (original error: %w)", rbErr, err)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("failed to commit tx: %w", commitErr)
		}
	}()

	return fn(ctx)
}

// WithSnapshot makes the next Do open a read-only REPEATABLE READ transaction,
// so every statement inside it sees the same snapshot. Managers without
// isolation levels ignore it.
func WithSnapshot(ctx context.Context) context.Context {
	return context.WithValue(ctx, txOptions, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
}
