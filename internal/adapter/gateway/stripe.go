// Package gateway talks to the card payment provider.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// ErrNotConfigured is returned by Offline.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// Stripe implements wallet.Gateway with PaymentIntents and refunds.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	return &Stripe{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (s *Stripe) CreateIntent(ctx context.Context, amount models.Money, currency string, metadata map[string]string) (models.GatewayIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return models.GatewayIntent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return models.GatewayIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *Stripe) Refund(ctx context.Context, intentID string, amount models.Money) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(int64(amount)),
	}
	params.Context = ctx

	if _, err := s.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe: refund %s: %w", intentID, err)
	}
	return nil
}

// IntentEvent is the part of a webhook event the wallet acts on.
type IntentEvent struct {
	Type     string
	IntentID string
	Amount   models.Money
	Reason   string
}

// ParseEvent verifies the webhook signature and decodes a payment intent event.
func (s *Stripe) ParseEvent(payload []byte, signature string) (IntentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return IntentEvent{}, fmt.Errorf("stripe: invalid webhook: %w", err)
	}

	out := IntentEvent{Type: string(event.Type)}
	if out.Type != EventIntentSucceeded && out.Type != EventIntentFailed {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return IntentEvent{}, fmt.Errorf("stripe: decode payment intent: %w", err)
	}

	out.IntentID = pi.ID
	out.Amount = models.Money(pi.Amount)
	if pi.LastPaymentError != nil {
		out.Reason = pi.LastPaymentError.Msg
	}
	if out.Reason == "" && out.Type == EventIntentFailed {
		out.Reason = "payment failed"
	}
	return out, nil
}

// Offline rejects every call. Used when no gateway key is configured.
type Offline struct{}

func (Offline) CreateIntent(context.Context, models.Money, string, map[string]string) (models.GatewayIntent, error) {
	return models.GatewayIntent{}, ErrNotConfigured
}

func (Offline) Refund(context.Context, string, models.Money) error {
	return ErrNotConfigured
}

func (Offline) ParseEvent([]byte, string) (IntentEvent, error) {
	return IntentEvent{}, ErrNotConfigured
}
