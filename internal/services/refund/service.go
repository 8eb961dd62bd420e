// Package refund reverses settled transactions through the payment
// processor and keeps the transaction and earnings ledgers consistent
// with the amounts actually returned.
package refund

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/locks"
	"bazaar/internal/models"
	"bazaar/internal/provider"
	"bazaar/internal/repositories"
	"bazaar/internal/services/earnings"
	"bazaar/internal/services/ledger"
)

// Config bounds the outbound processor call.
type Config struct {
	CallTimeout time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// transitionAttempts bounds the re-read loop when a refund races the
// settlement processor or a dispute resolution on the same transaction.
const transitionAttempts = 3

// Service is the refund processor contract. A zero amount requests a
// refund of everything not yet returned.
type Service interface {
	Refund(ctx context.Context, txID uint, amount int64, reason string, actorID uint) (*models.Refund, error)
	ListByTransaction(ctx context.Context, txID uint) ([]models.Refund, error)
}

type service struct {
	repo     repositories.RefundRepository
	ledger   ledger.Service
	earnings earnings.Service
	gateway  provider.Gateway
	locks    *locks.KeyedMutex
	cfg      Config
}

// NewService creates a refund processor.
func NewService(
	repo repositories.RefundRepository,
	ledgerSvc ledger.Service,
	earningsSvc earnings.Service,
	gateway provider.Gateway,
	cfg Config,
) Service {
	if repo == nil {
		panic("refund repository is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if earningsSvc == nil {
		panic("earnings service is required")
	}
	if gateway == nil {
		panic("payment gateway is required")
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &service{
		repo:     repo,
		ledger:   ledgerSvc,
		earnings: earningsSvc,
		gateway:  gateway,
		locks:    locks.NewKeyedMutex(),
		cfg:      cfg,
	}
}

// Refund returns money to the buyer. The amount must not push the total
// of succeeded refunds past the transaction gross. A refund that covers
// the full gross marks the transaction refunded and forfeits the
// creator's earning; anything less leaves the earning untouched and the
// transaction partially refunded.
func (s *service) Refund(ctx context.Context, txID uint, amount int64, reason string, actorID uint) (*models.Refund, error) {
	// The whole check-call-record sequence is serialized per transaction:
	// without the lock, two concurrent requests both observe the same
	// remaining balance and together push the refund total past the gross.
	unlock := s.locks.Lock(strconv.FormatUint(uint64(txID), 10))
	defer unlock()

	tx, err := s.ledger.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	switch tx.Status {
	case models.TransactionStatusSucceeded, models.TransactionStatusPartiallyRefunded:
	default:
		return nil, fmt.Errorf("%w: cannot refund a %s transaction", domainerrors.ErrInvalidTransition, tx.Status)
	}

	alreadyRefunded, err := s.repo.SumSucceededByTransaction(txID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum prior refunds: %w", err)
	}
	remaining := tx.Amount - alreadyRefunded

	if amount == 0 {
		amount = remaining
	}
	if amount <= 0 || amount > remaining {
		return nil, fmt.Errorf("%w: refund of %d with %d remaining", domainerrors.ErrInvalidAmount, amount, remaining)
	}

	refund := &models.Refund{
		TransactionID: txID,
		Amount:        amount,
		Reason:        reason,
		Status:        models.RefundStatusPending,
		RequestedBy:   actorID,
	}
	if err := s.repo.Create(refund); err != nil {
		return nil, fmt.Errorf("failed to create refund record: %w", err)
	}

	// The key is derived from the local refund row, so a retried call
	// cannot charge the processor twice for the same refund.
	idempotencyKey := fmt.Sprintf("refund-%d-%d", txID, refund.ID)

	result, err := s.callProcessor(ctx, tx.ExternalRef, amount, reason, idempotencyKey)
	if err != nil {
		refund.Status = models.RefundStatusFailed
		if saveErr := s.repo.Save(refund); saveErr != nil {
			log.Printf("refund %d: failed to mark failed: %v", refund.ID, saveErr)
		}
		return nil, err
	}

	refund.ExternalRef = result.ID
	refund.Status = models.RefundStatusSucceeded
	if err := s.repo.Save(refund); err != nil {
		// The processor already moved the money; the record catches up on
		// the next reconciliation pass.
		log.Printf("refund %d: processor refund %s succeeded but save failed: %v", refund.ID, result.ID, err)
		return nil, err
	}

	next := models.TransactionStatusPartiallyRefunded
	fullyCovered := alreadyRefunded+amount == tx.Amount
	if fullyCovered {
		next = models.TransactionStatusRefunded
	}
	if err := s.transition(ctx, txID, next); err != nil {
		return nil, err
	}

	if fullyCovered {
		if err := s.earnings.ZeroByTransaction(ctx, txID); err != nil && !errors.Is(err, earnings.ErrNotFound) {
			return nil, err
		}
	}

	log.Printf("refund %d: returned %d on transaction %d (%s)", refund.ID, amount, txID, next)
	return refund, nil
}

// callProcessor issues the refund with a bounded timeout per attempt and
// a small retry budget. Exhausting it surfaces ErrExternalProcessor.
func (s *service) callProcessor(ctx context.Context, intentID string, amount int64, reason, idempotencyKey string) (*provider.RefundResult, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		result, err := s.gateway.CreateRefund(callCtx, intentID, amount, reason, idempotencyKey)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("refund: processor call attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("%w: %v", domainerrors.ErrExternalProcessor, lastErr)
}

func (s *service) transition(ctx context.Context, txID uint, next string) error {
	var err error
	for attempt := 0; attempt < transitionAttempts; attempt++ {
		_, err = s.ledger.Transition(ctx, txID, next)
		if !errors.Is(err, domainerrors.ErrConcurrentModification) {
			return err
		}
	}
	return err
}

func (s *service) ListByTransaction(ctx context.Context, txID uint) ([]models.Refund, error) {
	return s.repo.ListByTransaction(txID)
}
