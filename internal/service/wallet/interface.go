package wallet

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

/*=====================Wallet Repository============================*/

type WalletRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	// LockForUpdate row-locks the wallets in ascending id order and returns them by id.
	LockForUpdate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Wallet, error)
	SetBalance(ctx context.Context, id uuid.UUID, balance models.Money) error
}

type TransactionRepo interface {
	Append(ctx context.Context, t *models.WalletTransaction) error
	// List returns entries newest first.
	List(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
	// ListAll returns every entry in creation order.
	ListAll(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error)
}

/*=====================Payment Repository============================*/

// PaymentRepo reads lock the payment row when called inside a transaction.
type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByGatewayRef(ctx context.Context, ref string) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
}

type RideRepo interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Ride, error)
	SetPaymentState(ctx context.Context, id uuid.UUID, state types.RidePaymentState) error
}

/*=====================Payment Gateway============================*/

type Gateway interface {
	CreateIntent(ctx context.Context, amount models.Money, currency string, metadata map[string]string) (models.GatewayIntent, error)
	Refund(ctx context.Context, intentID string, amount models.Money) error
}

type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}
