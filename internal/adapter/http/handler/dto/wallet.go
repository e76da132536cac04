package dto

import "github.com/Temutjin2k/ride-dispatch/internal/domain/models"

type TopUpRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (r *TopUpRequest) Money() models.Money {
	return models.FromAmount(r.Amount)
}

// RefundRequest with a zero or missing amount refunds the full payment.
type RefundRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

func (r *RefundRequest) Money() models.Money {
	return models.FromAmount(r.Amount)
}
