package repo

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/pkg/trm"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

func TxorDB(ctx context.Context, db *pgxpool.Pool) Querier {
	tx, ok := ctx.Value(trm.TxKey).(pgx.Tx)
	if !ok {
		return db
	}
	return tx
}

// inTx reports whether ctx carries a transaction. Row locks are only taken inside one.
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(trm.TxKey).(pgx.Tx)
	return ok
}

type scanner interface {
	Scan(dest ...any) error
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
