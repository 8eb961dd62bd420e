// Package dispute applies the chargeback lifecycle to transactions and
// their earnings: open on a processor notification, then resolve as won,
// lost or charge refunded.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/services/earnings"
	"bazaar/internal/services/ledger"
)

// Resolution outcomes accepted by Resolve.
const (
	OutcomeWon            = models.DisputeStatusWon
	OutcomeLost           = models.DisputeStatusLost
	OutcomeChargeRefunded = models.DisputeStatusChargeRefunded
)

// Service is the dispute handler contract.
type Service interface {
	Open(ctx context.Context, txID uint, externalRef, reason string, amount int64) (*models.Dispute, error)
	Resolve(ctx context.Context, txID uint, outcome, resolution string, actorID uint) (*models.Transaction, error)
	ListByTransaction(ctx context.Context, txID uint) ([]models.Dispute, error)
}

type service struct {
	repo     repositories.DisputeRepository
	ledger   ledger.Service
	earnings earnings.Service
}

// NewService creates a dispute handler.
func NewService(repo repositories.DisputeRepository, ledgerSvc ledger.Service, earningsSvc earnings.Service) Service {
	if repo == nil {
		panic("dispute repository is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if earningsSvc == nil {
		panic("earnings service is required")
	}
	return &service{
		repo:     repo,
		ledger:   ledgerSvc,
		earnings: earningsSvc,
	}
}

// Open records a new chargeback for a transaction. If an open dispute
// already exists it is returned unchanged, so duplicate processor
// notifications stay harmless.
func (s *service) Open(ctx context.Context, txID uint, externalRef, reason string, amount int64) (*models.Dispute, error) {
	existing, err := s.repo.FindOpenByTransaction(txID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrDisputeNotFound) {
		return nil, err
	}

	d := &models.Dispute{
		TransactionID: txID,
		ExternalRef:   externalRef,
		Reason:        reason,
		Amount:        amount,
		Status:        models.DisputeStatusNeedsResponse,
	}
	if err := s.repo.Create(d); err != nil {
		return nil, fmt.Errorf("failed to create dispute: %w", err)
	}
	return d, nil
}

// Resolve closes the open dispute on a transaction. Won releases the held
// earning and returns the transaction to succeeded; lost and charge
// refunded forfeit the earning and mark the transaction refunded.
func (s *service) Resolve(ctx context.Context, txID uint, outcome, resolution string, actorID uint) (*models.Transaction, error) {
	switch outcome {
	case OutcomeWon, OutcomeLost, OutcomeChargeRefunded:
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", domainerrors.ErrValidation, outcome)
	}

	d, err := s.repo.FindOpenByTransaction(txID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, domainerrors.ErrNoActiveDispute
		}
		return nil, err
	}

	var tx *models.Transaction
	if outcome == OutcomeWon {
		if err := s.earnings.ReleaseByTransaction(ctx, txID); err != nil && !errors.Is(err, earnings.ErrNotFound) {
			return nil, err
		}
		tx, err = s.ledger.Transition(ctx, txID, models.TransactionStatusSucceeded)
	} else {
		if err := s.earnings.ZeroByTransaction(ctx, txID); err != nil && !errors.Is(err, earnings.ErrNotFound) {
			return nil, err
		}
		tx, err = s.ledger.Transition(ctx, txID, models.TransactionStatusRefunded)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	d.Status = outcome
	d.Resolution = resolution
	d.ResolvedAt = &now
	if err := s.repo.Save(d); err != nil {
		// The ledger moves already happened; the dispute row is the only
		// stale piece and an operator can re-resolve it.
		log.Printf("dispute %d: ledger updated but dispute record save failed: %v", d.ID, err)
		return nil, err
	}

	log.Printf("dispute %d on transaction %d resolved %s by actor %d", d.ID, txID, outcome, actorID)
	return tx, nil
}

func (s *service) ListByTransaction(ctx context.Context, txID uint) ([]models.Dispute, error) {
	return s.repo.ListByTransaction(txID)
}
