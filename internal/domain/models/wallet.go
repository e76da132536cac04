package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type Wallet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Balance   Money     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalletTransaction is an append-only ledger entry of one wallet.
type WalletTransaction struct {
	ID              uuid.UUID             `json:"id"`
	WalletID        uuid.UUID             `json:"wallet_id"`
	Amount          Money                 `json:"amount"`
	Type            types.TransactionType `json:"type"`
	BalanceBefore   Money                 `json:"balance_before"`
	BalanceAfter    Money                 `json:"balance_after"`
	ReferenceID     string                `json:"reference_id"`
	ParentPaymentID *uuid.UUID            `json:"parent_payment_id,omitempty"`
	Description     string                `json:"description"`
	CreatedAt       time.Time             `json:"created_at"`
}

// Apply returns the balance after applying the entry to before.
func (t *WalletTransaction) Apply(before Money) Money {
	if t.Type == types.Debit {
		return before - t.Amount
	}
	return before + t.Amount
}

// Replay folds entries in creation order starting from a zero balance.
// It returns the final balance and the index of the first entry whose
// recorded balances disagree with the running balance, or -1.
func Replay(entries []WalletTransaction) (Money, int) {
	var balance Money
	for i := range entries {
		e := &entries[i]
		if e.BalanceBefore != balance {
			return balance, i
		}
		balance = e.Apply(balance)
		if e.BalanceAfter != balance {
			return balance, i
		}
	}
	return balance, -1
}

type Payment struct {
	ID             uuid.UUID           `json:"id"`
	UserID         uuid.UUID           `json:"user_id"`
	RideID         *uuid.UUID          `json:"ride_id,omitempty"`
	Kind           types.PaymentKind   `json:"kind"`
	Amount         Money               `json:"amount"`
	Status         types.PaymentStatus `json:"status"`
	GatewayRef     string              `json:"gateway_reference,omitempty"`
	CommissionRate float64             `json:"commission_rate,omitempty"` // platform share fixed at settlement
	RefundAmount   Money               `json:"refund_amount,omitempty"`
	FailureReason  string              `json:"failure_reason,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Settlement summarizes a settled ride payment.
type Settlement struct {
	Payment          *Payment `json:"payment"`
	RiderBalance     Money    `json:"rider_balance_after"`
	DriverEarnings   Money    `json:"driver_earnings"`
	PlatformEarnings Money    `json:"platform_commission"`
}

// TopUpIntent is returned by the first phase of a top-up. No money has moved yet.
type TopUpIntent struct {
	PaymentID    uuid.UUID `json:"payment_id"`
	GatewayRef   string    `json:"payment_intent_id"`
	ClientSecret string    `json:"client_secret"`
	Amount       Money     `json:"amount"`
}

// GatewayIntent is what the payment gateway returns for a created intent.
type GatewayIntent struct {
	ID           string
	ClientSecret string
}

type Statement struct {
	Wallet       *Wallet             `json:"wallet"`
	Transactions []WalletTransaction `json:"transactions"`
}

// Refund summarizes a refunded payment.
type Refund struct {
	Payment  *Payment `json:"payment"`
	Refunded Money    `json:"refunded"`
	// Shortfall is the part of a reversal debit that could not be taken because a balance hit zero.
	Shortfall Money `json:"shortfall,omitempty"`
}
