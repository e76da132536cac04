package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/gateway"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const maxWebhookBytes = 65_536

type (
	EventParser interface {
		ParseEvent(payload []byte, signature string) (gateway.IntentEvent, error)
	}

	TopUpConfirmer interface {
		ConfirmTopUp(ctx context.Context, gatewayRef string, amount models.Money) (*models.Payment, error)
		FailTopUp(ctx context.Context, gatewayRef, reason string) (*models.Payment, error)
	}
)

type Webhook struct {
	parser  EventParser
	wallets TopUpConfirmer
	l       logger.Logger
}

func NewWebhook(parser EventParser, wallets TopUpConfirmer, l logger.Logger) *Webhook {
	return &Webhook{
		parser:  parser,
		wallets: wallets,
		l:       l,
	}
}

// Stripe godoc
// @Summary      Stripe webhook
// @Description  Verifies the Stripe-Signature header and settles pending top-ups
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Webhook signature"
// @Success      200               {object}  map[string]any
// @Failure      400               {object}  map[string]any
// @Router       /webhooks/stripe [post]
func (h *Webhook) Stripe(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionStripeWebhook)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		badRequestResponse(w, "failed to read body")
		return
	}

	event, err := h.parser.ParseEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.l.Warn(ctx, "rejected webhook", "error", err.Error())
		badRequestResponse(w, "invalid webhook signature or payload")
		return
	}

	var p *models.Payment
	switch event.Type {
	case gateway.EventIntentSucceeded:
		p, err = h.wallets.ConfirmTopUp(ctx, event.IntentID, event.Amount)
	case gateway.EventIntentFailed:
		p, err = h.wallets.FailTopUp(ctx, event.IntentID, event.Reason)
	default:
		h.l.Debug(ctx, "ignored webhook event", "type", event.Type)
		_ = writeJSON(w, http.StatusOK, envelope{"received": true}, nil)
		return
	}
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to apply webhook event", err, "type", event.Type, "intent_id", event.IntentID)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"received": true, "payment_id": p.ID, "status": p.Status}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}
