package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepo struct {
	db *pgxpool.Pool
}

func NewPaymentRepo(db *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{db: db}
}

const paymentColumns = `id, user_id, ride_id, kind, amount, status, gateway_ref,
	commission_rate, refund_amount, failure_reason, created_at, updated_at`

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		p   models.Payment
		ref *string
	)
	if err := row.Scan(
		&p.ID, &p.UserID, &p.RideID, &p.Kind, &p.Amount, &p.Status, &ref,
		&p.CommissionRate, &p.RefundAmount, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ref != nil {
		p.GatewayRef = *ref
	}
	return &p, nil
}

// nullRef stores an empty gateway reference as NULL so the unique index ignores it.
func nullRef(ref string) *string {
	if ref == "" {
		return nil
	}
	return &ref
}

func (r *PaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	const op = "PaymentRepo.Create"
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		p.ID, p.UserID, p.RideID, p.Kind, p.Amount, p.Status, nullRef(p.GatewayRef),
		p.CommissionRate, p.RefundAmount, p.FailureReason, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PaymentRepo) one(ctx context.Context, op, where string, arg any) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + where
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}

	p, err := scanPayment(TxorDB(ctx, r.db).QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r *PaymentRepo) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.one(ctx, "PaymentRepo.Get", "id = $1", id)
}

func (r *PaymentRepo) GetByGatewayRef(ctx context.Context, ref string) (*models.Payment, error) {
	if ref == "" {
		return nil, types.ErrPaymentNotFound
	}
	return r.one(ctx, "PaymentRepo.GetByGatewayRef", "gateway_ref = $1", ref)
}

func (r *PaymentRepo) Update(ctx context.Context, p *models.Payment) error {
	const op = "PaymentRepo.Update"
	query := `
		UPDATE payments
		SET status = $2,
			gateway_ref = $3,
			refund_amount = $4,
			failure_reason = $5,
			updated_at = $6
		WHERE id = $1`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query,
		p.ID, p.Status, nullRef(p.GatewayRef), p.RefundAmount, p.FailureReason, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrPaymentNotFound
	}

	return nil
}
