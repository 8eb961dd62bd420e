// Package provider abstracts the external payment processor. The settlement
// core only depends on this interface; the Stripe implementation lives in
// stripe.go.
package provider

import "context"

// Neutral event types emitted by VerifyAndParseEvent.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCanceled  = "payment.canceled"
	EventDisputeCreated   = "dispute.created"
)

// PaymentIntent is the processor-side handle for a payment attempt. The
// intent id doubles as the idempotent external reference of the local
// transaction.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// RefundResult is the processor's answer to a refund request.
type RefundResult struct {
	ID     string
	Status string
}

// Event is a verified, normalized processor notification.
type Event struct {
	ID          string
	Type        string
	ExternalRef string // payment intent id the event refers to
	Amount      int64
	Reason      string
	DisputeRef  string // set for dispute events
}

// Gateway is the outbound contract with the payment processor. All calls
// accept a context for bounded timeouts; mutating calls take an idempotency
// key so retries are safe.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency, idempotencyKey string, metadata map[string]string) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, intentID string, amount int64, reason, idempotencyKey string) (*RefundResult, error)
	VerifyAndParseEvent(payload []byte, signature string) (*Event, error)
}
