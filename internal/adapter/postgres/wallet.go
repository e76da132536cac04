package repo

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepo struct {
	db *pgxpool.Pool
}

func NewWalletRepo(db *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{db: db}
}

const walletColumns = `id, owner_id, balance, created_at, updated_at`

func scanWallet(row scanner) (*models.Wallet, error) {
	var w models.Wallet
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepo) one(ctx context.Context, op, query string, arg any) (*models.Wallet, error) {
	w, err := scanWallet(TxorDB(ctx, r.db).QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrWalletNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

func (r *WalletRepo) Get(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return r.one(ctx, "WalletRepo.Get", `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
}

func (r *WalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	return r.one(ctx, "WalletRepo.GetByOwner", `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1`, ownerID)
}

// GetOrCreate returns the owner's wallet, creating an empty one on first access.
// Concurrent first accesses converge on the same row through the owner_id unique key.
func (r *WalletRepo) GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	const op = "WalletRepo.GetOrCreate"
	query := `
		INSERT INTO wallets (id, owner_id)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO NOTHING`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, uuid.New(), ownerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.GetByOwner(ctx, ownerID)
}

// LockForUpdate must run inside a transaction. Rows are locked in ascending id order
// so two settlements touching the same wallets cannot deadlock.
func (r *WalletRepo) LockForUpdate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	const op = "WalletRepo.LockForUpdate"
	if !inTx(ctx) {
		return nil, fmt.Errorf("%s: called outside of a transaction", op)
	}

	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	sorted = slices.Compact(sorted)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`
	rows, err := TxorDB(ctx, r.db).Query(ctx, query, idStrings(sorted))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*models.Wallet, len(sorted))
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out[w.ID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(out) != len(sorted) {
		return nil, types.ErrWalletNotFound
	}

	return out, nil
}

func (r *WalletRepo) SetBalance(ctx context.Context, id uuid.UUID, balance models.Money) error {
	const op = "WalletRepo.SetBalance"

	tag, err := TxorDB(ctx, r.db).Exec(ctx, `UPDATE wallets SET balance = $2, updated_at = now() WHERE id = $1`, id, balance)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrWalletNotFound
	}

	return nil
}

/*=====================Wallet Transactions============================*/

type TransactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{db: db}
}

const entryColumns = `id, wallet_id, amount, type, balance_before, balance_after,
	reference_id, parent_payment_id, description, created_at`

func scanEntry(row scanner) (models.WalletTransaction, error) {
	var t models.WalletTransaction
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Amount, &t.Type, &t.BalanceBefore, &t.BalanceAfter,
		&t.ReferenceID, &t.ParentPaymentID, &t.Description, &t.CreatedAt,
	)
	return t, err
}

// Append inserts an entry. Entries are never updated or deleted.
func (r *TransactionRepo) Append(ctx context.Context, t *models.WalletTransaction) error {
	const op = "TransactionRepo.Append"
	query := `
		INSERT INTO wallet_transactions (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		t.ID, t.WalletID, t.Amount, t.Type, t.BalanceBefore, t.BalanceAfter,
		t.ReferenceID, t.ParentPaymentID, t.Description, t.CreatedAt,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *TransactionRepo) List(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	query := `SELECT ` + entryColumns + ` FROM wallet_transactions WHERE wallet_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, "TransactionRepo.List", query, walletID, limit, offset)
}

func (r *TransactionRepo) ListAll(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error) {
	query := `SELECT ` + entryColumns + ` FROM wallet_transactions WHERE wallet_id = $1 ORDER BY seq`
	return r.list(ctx, "TransactionRepo.ListAll", query, walletID)
}

func (r *TransactionRepo) list(ctx context.Context, op, query string, args ...any) ([]models.WalletTransaction, error) {
	rows, err := TxorDB(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.WalletTransaction, 0)
	for rows.Next() {
		t, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
