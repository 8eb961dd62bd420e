package provider

import (
	"context"
	"encoding/json"
	"fmt"

	domainerrors "bazaar/internal/errors"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

// StripeGateway implements Gateway on the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a Stripe-backed gateway.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	api := client.New(secretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency, idempotencyKey string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.IdempotencyKey = stripe.String(idempotencyKey)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get payment intent: %w", err)
	}

	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, intentID string, amount int64, reason, idempotencyKey string) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.IdempotencyKey = stripe.String(idempotencyKey)
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create refund: %w", err)
	}

	return &RefundResult{
		ID:     refund.ID,
		Status: string(refund.Status),
	}, nil
}

// VerifyAndParseEvent checks the webhook signature and normalizes the Stripe
// event into the neutral Event shape. Signature failures and undecodable
// payloads both surface as ErrMalformedEvent; the caller must not apply any
// ledger effects for them.
func (g *StripeGateway) VerifyAndParseEvent(payload []byte, signature string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, domainerrors.ErrMalformedEvent
	}

	ev := &Event{
		ID: stripeEvent.ID,
	}

	switch stripeEvent.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(stripeEvent.Data.Raw, &intent); err != nil {
			return nil, domainerrors.ErrMalformedEvent
		}
		ev.ExternalRef = intent.ID
		ev.Amount = intent.Amount
		switch stripeEvent.Type {
		case "payment_intent.succeeded":
			ev.Type = EventPaymentSucceeded
		case "payment_intent.payment_failed":
			ev.Type = EventPaymentFailed
		default:
			ev.Type = EventPaymentCanceled
		}

	case "charge.dispute.created":
		var dispute stripe.Dispute
		if err := json.Unmarshal(stripeEvent.Data.Raw, &dispute); err != nil {
			return nil, domainerrors.ErrMalformedEvent
		}
		ev.Type = EventDisputeCreated
		ev.DisputeRef = dispute.ID
		ev.Amount = dispute.Amount
		ev.Reason = string(dispute.Reason)
		if dispute.PaymentIntent != nil {
			ev.ExternalRef = dispute.PaymentIntent.ID
		}

	default:
		// Unknown event types pass through; the processor records and
		// ignores them.
		ev.Type = string(stripeEvent.Type)
	}

	if isKnownType(ev.Type) && ev.ExternalRef == "" {
		return nil, domainerrors.ErrMalformedEvent
	}

	return ev, nil
}

func isKnownType(t string) bool {
	switch t {
	case EventPaymentSucceeded, EventPaymentFailed, EventPaymentCanceled, EventDisputeCreated:
		return true
	}
	return false
}
