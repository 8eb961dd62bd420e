package settlement

import (
	"context"
	"time"

	"bazaar/internal/models"
	"bazaar/internal/provider"
)

// EventVerifier authenticates and normalizes raw processor payloads.
type EventVerifier interface {
	VerifyAndParseEvent(payload []byte, signature string) (*provider.Event, error)
}

// Ledger is the slice of the transaction ledger the processor drives.
type Ledger interface {
	FindByExternalRef(ctx context.Context, ref string) (*models.Transaction, error)
	Transition(ctx context.Context, id uint, next string) (*models.Transaction, error)
}

// Earnings is the slice of the earnings ledger the processor drives.
type Earnings interface {
	Open(ctx context.Context, txID, creatorID, listingID uint, amount, platformFee int64) (*models.Earning, error)
	HoldByTransaction(ctx context.Context, txID uint) error
}

// Receipts issues the purchase receipt on settlement success.
type Receipts interface {
	Create(ctx context.Context, tx *models.Transaction) (*models.Receipt, error)
}

// Disputes opens chargeback records from processor notifications.
type Disputes interface {
	Open(ctx context.Context, txID uint, externalRef, reason string, amount int64) (*models.Dispute, error)
}

// EventCache is the optional fast-path in front of the durable dedup set.
type EventCache interface {
	EventSeen(ctx context.Context, eventID string) (result string, ok bool, err error)
	MarkEventSeen(ctx context.Context, eventID, result string, ttl time.Duration) error
}
