// Package settlement consumes asynchronous payment processor notifications
// and drives the transaction and earnings ledgers. Delivery is at least
// once and unordered, so the processor deduplicates by event id and
// serializes all effects per transaction.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/locks"
	"bazaar/internal/models"
	"bazaar/internal/provider"
	"bazaar/internal/repositories"
	"bazaar/internal/services/earnings"
	"bazaar/internal/services/ledger"
)

// Result is the recorded outcome of processing one event.
type Result struct {
	EventID string `json:"event_id"`
	Code    string `json:"code"`
}

// Config bounds the orphan-event retry loop and the cache TTL.
type Config struct {
	MaxOrphanRetries int
	OrphanRetryDelay time.Duration
	EventSeenTTL     time.Duration
}

// applyAttempts bounds the re-read-and-reapply loop on optimistic lock
// conflicts with the refund and dispute paths.
const applyAttempts = 3

type noopCache struct{}

func (noopCache) EventSeen(context.Context, string) (string, bool, error) { return "", false, nil }
func (noopCache) MarkEventSeen(context.Context, string, string, time.Duration) error {
	return nil
}

// Processor applies settlement events to the ledgers.
type Processor struct {
	verifier EventVerifier
	ledger   Ledger
	earnings Earnings
	receipts Receipts
	disputes Disputes
	events   repositories.EventRepository
	cache    EventCache
	locks    *locks.KeyedMutex
	cfg      Config
}

// NewProcessor creates a settlement event processor. The cache is optional.
func NewProcessor(
	verifier EventVerifier,
	ledgerSvc Ledger,
	earningsSvc Earnings,
	receiptSvc Receipts,
	disputeSvc Disputes,
	events repositories.EventRepository,
	cache EventCache,
	cfg Config,
) *Processor {
	if verifier == nil {
		panic("event verifier is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if earningsSvc == nil {
		panic("earnings service is required")
	}
	if receiptSvc == nil {
		panic("receipt service is required")
	}
	if disputeSvc == nil {
		panic("dispute service is required")
	}
	if events == nil {
		panic("event repository is required")
	}
	if cache == nil {
		cache = noopCache{}
	}
	if cfg.MaxOrphanRetries <= 0 {
		cfg.MaxOrphanRetries = 3
	}
	if cfg.OrphanRetryDelay <= 0 {
		cfg.OrphanRetryDelay = 200 * time.Millisecond
	}
	if cfg.EventSeenTTL <= 0 {
		cfg.EventSeenTTL = 24 * time.Hour
	}

	return &Processor{
		verifier: verifier,
		ledger:   ledgerSvc,
		earnings: earningsSvc,
		receipts: receiptSvc,
		disputes: disputeSvc,
		events:   events,
		cache:    cache,
		locks:    locks.NewKeyedMutex(),
		cfg:      cfg,
	}
}

// ProcessEvent verifies, deduplicates and applies one raw processor
// notification. A repeated event id returns the previously recorded result
// without re-applying effects. A returned error means the event was NOT
// durably recorded; the webhook endpoint maps ErrMalformedEvent to 400 and
// everything else to a retryable failure.
func (p *Processor) ProcessEvent(ctx context.Context, payload []byte, signature string) (*Result, error) {
	ev, err := p.verifier.VerifyAndParseEvent(payload, signature)
	if err != nil {
		return nil, err
	}

	// Fast path: recently processed ids answered from cache.
	if code, seen, err := p.cache.EventSeen(ctx, ev.ID); err == nil && seen {
		return &Result{EventID: ev.ID, Code: code}, nil
	}
	if prior, err := p.events.FindProcessed(ev.ID); err == nil {
		return &Result{EventID: ev.ID, Code: prior.Result}, nil
	}

	if !isSettlementType(ev.Type) {
		log.Printf("settlement: ignoring event %s of type %s", ev.ID, ev.Type)
		return p.record(ctx, ev, models.EventResultIgnored)
	}

	// All effects for one transaction are serialized; events for other
	// transactions proceed in parallel.
	unlock := p.locks.Lock(ev.ExternalRef)
	defer unlock()

	// Re-check after acquiring the lock: a concurrent duplicate delivery
	// may have just finished the same event.
	if prior, err := p.events.FindProcessed(ev.ID); err == nil {
		return &Result{EventID: ev.ID, Code: prior.Result}, nil
	}

	tx, err := p.findTransaction(ctx, ev)
	if err != nil {
		if errors.Is(err, domainerrors.ErrOrphanEvent) {
			return p.deadLetter(ctx, ev)
		}
		return nil, err
	}

	code, err := p.apply(ctx, ev, tx)
	if err != nil {
		return nil, err
	}

	return p.record(ctx, ev, code)
}

// findTransaction resolves the event's external reference, retrying a
// bounded number of times: the processor can notify before the local
// purchase-initiation commit lands.
func (p *Processor) findTransaction(ctx context.Context, ev *provider.Event) (*models.Transaction, error) {
	for attempt := 0; ; attempt++ {
		tx, err := p.ledger.FindByExternalRef(ctx, ev.ExternalRef)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return nil, err
		}

		if attempt+1 >= p.cfg.MaxOrphanRetries {
			log.Printf("settlement: orphan event %s for unknown ref %s after %d attempts",
				ev.ID, ev.ExternalRef, attempt+1)
			return nil, domainerrors.ErrOrphanEvent
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.cfg.OrphanRetryDelay):
		}
	}
}

// apply dispatches on event type. Conflicts with concurrent refund or
// dispute activity are retried by re-reading the transaction.
func (p *Processor) apply(ctx context.Context, ev *provider.Event, tx *models.Transaction) (string, error) {
	var code string
	var err error
	for attempt := 0; attempt < applyAttempts; attempt++ {
		switch ev.Type {
		case provider.EventPaymentSucceeded:
			code, err = p.applySucceeded(ctx, tx)
		case provider.EventPaymentFailed:
			code, err = p.applyTerminal(ctx, tx, models.TransactionStatusFailed)
		case provider.EventPaymentCanceled:
			code, err = p.applyTerminal(ctx, tx, models.TransactionStatusCanceled)
		case provider.EventDisputeCreated:
			code, err = p.applyDispute(ctx, ev, tx)
		}

		if !errors.Is(err, domainerrors.ErrConcurrentModification) {
			return code, err
		}

		tx, err = p.ledger.FindByExternalRef(ctx, ev.ExternalRef)
		if err != nil {
			return "", err
		}
	}
	return "", domainerrors.ErrConcurrentModification
}

// applySucceeded runs the transition + receipt + earning sequence. Each
// step is idempotent, so a retry after a partial failure completes the
// remainder instead of duplicating effects.
func (p *Processor) applySucceeded(ctx context.Context, tx *models.Transaction) (string, error) {
	switch tx.Status {
	case models.TransactionStatusPending:
		moved, err := p.ledger.Transition(ctx, tx.ID, models.TransactionStatusSucceeded)
		if err != nil {
			return "", err
		}
		tx = moved
	case models.TransactionStatusSucceeded:
		// Retry path after a partial failure; fall through to complete
		// the receipt and earning steps.
	default:
		// Late success for an already settled or reversed transaction.
		log.Printf("settlement: success event ignored, transaction %d is %s", tx.ID, tx.Status)
		return models.EventResultIgnored, nil
	}

	if _, err := p.receipts.Create(ctx, tx); err != nil {
		return "", fmt.Errorf("receipt creation failed: %w", err)
	}

	if _, err := p.earnings.Open(ctx, tx.ID, tx.CreatorID, tx.ListingID, tx.Amount, tx.PlatformFee); err != nil {
		if !errors.Is(err, earnings.ErrAlreadyExists) {
			return "", fmt.Errorf("earning creation failed: %w", err)
		}
	}

	return models.EventResultApplied, nil
}

func (p *Processor) applyTerminal(ctx context.Context, tx *models.Transaction, status string) (string, error) {
	if tx.Status != models.TransactionStatusPending {
		log.Printf("settlement: %s event ignored, transaction %d is %s", status, tx.ID, tx.Status)
		return models.EventResultIgnored, nil
	}
	if _, err := p.ledger.Transition(ctx, tx.ID, status); err != nil {
		return "", err
	}
	return models.EventResultApplied, nil
}

func (p *Processor) applyDispute(ctx context.Context, ev *provider.Event, tx *models.Transaction) (string, error) {
	switch tx.Status {
	case models.TransactionStatusSucceeded:
		if _, err := p.ledger.Transition(ctx, tx.ID, models.TransactionStatusDisputed); err != nil {
			return "", err
		}
	case models.TransactionStatusDisputed:
		// Redelivery; complete the remaining steps.
	default:
		log.Printf("settlement: dispute event ignored, transaction %d is %s", tx.ID, tx.Status)
		return models.EventResultIgnored, nil
	}

	if _, err := p.disputes.Open(ctx, tx.ID, ev.DisputeRef, ev.Reason, ev.Amount); err != nil {
		return "", fmt.Errorf("dispute creation failed: %w", err)
	}

	if err := p.earnings.HoldByTransaction(ctx, tx.ID); err != nil {
		if !errors.Is(err, earnings.ErrNotFound) {
			return "", fmt.Errorf("earning hold failed: %w", err)
		}
	}

	return models.EventResultApplied, nil
}

func (p *Processor) deadLetter(ctx context.Context, ev *provider.Event) (*Result, error) {
	dl := &models.DeadLetterEvent{
		EventID:     ev.ID,
		EventType:   ev.Type,
		ExternalRef: ev.ExternalRef,
		Payload: models.JSON{
			"amount":      ev.Amount,
			"reason":      ev.Reason,
			"dispute_ref": ev.DisputeRef,
		},
		Reason:   "no transaction for external reference",
		Attempts: p.cfg.MaxOrphanRetries,
	}
	if err := p.events.DeadLetter(dl); err != nil {
		return nil, fmt.Errorf("dead letter failed: %w", err)
	}
	return p.record(ctx, ev, models.EventResultDeadLettered)
}

// record durably marks the event processed. A concurrent duplicate that
// won the race is answered with its recorded result.
func (p *Processor) record(ctx context.Context, ev *provider.Event, code string) (*Result, error) {
	pe := &models.ProcessedEvent{
		EventID:     ev.ID,
		EventType:   ev.Type,
		ExternalRef: ev.ExternalRef,
		Result:      code,
		ProcessedAt: time.Now(),
	}
	if err := p.events.MarkProcessed(pe); err != nil {
		if errors.Is(err, repositories.ErrEventProcessed) {
			if prior, ferr := p.events.FindProcessed(ev.ID); ferr == nil {
				return &Result{EventID: ev.ID, Code: prior.Result}, nil
			}
		}
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	// Best effort; the table above is the source of truth.
	_ = p.cache.MarkEventSeen(ctx, ev.ID, code, p.cfg.EventSeenTTL)

	return &Result{EventID: ev.ID, Code: code}, nil
}

func isSettlementType(t string) bool {
	switch t {
	case provider.EventPaymentSucceeded, provider.EventPaymentFailed,
		provider.EventPaymentCanceled, provider.EventDisputeCreated:
		return true
	}
	return false
}
