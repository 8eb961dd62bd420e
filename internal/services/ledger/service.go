// Package ledger owns the transaction ledger: the durable record of every
// purchase attempt and the status state machine that governs its lifecycle.
package ledger

import (
	"context"
	"errors"
	"fmt"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// ErrNotFound is returned when no transaction matches the lookup.
var ErrNotFound = errors.New("transaction not found")

// transitions is the legal status state machine. A transaction can only
// move along these edges; everything else is rejected. A partial refund
// keeps the transaction refundable, so partially_refunded loops on itself
// until the gross amount is covered.
var transitions = map[string][]string{
	models.TransactionStatusPending: {
		models.TransactionStatusSucceeded,
		models.TransactionStatusFailed,
		models.TransactionStatusCanceled,
	},
	models.TransactionStatusSucceeded: {
		models.TransactionStatusRefunded,
		models.TransactionStatusPartiallyRefunded,
		models.TransactionStatusDisputed,
	},
	models.TransactionStatusPartiallyRefunded: {
		models.TransactionStatusPartiallyRefunded,
		models.TransactionStatusRefunded,
	},
	models.TransactionStatusDisputed: {
		models.TransactionStatusSucceeded, // dispute won
		models.TransactionStatusRefunded,  // dispute lost or charge refunded
	},
}

// CanTransition reports whether the state machine allows moving a
// transaction from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateRequest carries the fields for a new pending transaction.
type CreateRequest struct {
	BuyerID        uint
	ListingID      uint
	CreatorID      uint
	Amount         int64
	Currency       string
	PlatformFee    int64
	CreatorRevenue int64
	ExternalRef    string
	PaymentMethod  string
	Metadata       map[string]interface{}
}

// Service is the transaction ledger contract.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Transaction, error)
	FindByID(ctx context.Context, id uint) (*models.Transaction, error)
	FindByExternalRef(ctx context.Context, ref string) (*models.Transaction, error)
	Transition(ctx context.Context, id uint, next string) (*models.Transaction, error)
	ListForCreator(ctx context.Context, creatorID uint, limit, offset int) ([]models.Transaction, int64, error)
	ListForBuyer(ctx context.Context, buyerID uint, limit, offset int) ([]models.Transaction, int64, error)
}

type service struct {
	repo repositories.TransactionRepository
}

// NewService creates a transaction ledger service.
func NewService(repo repositories.TransactionRepository) Service {
	if repo == nil {
		panic("transaction repository is required")
	}
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domainerrors.ErrValidation)
	}
	if req.BuyerID == 0 || req.CreatorID == 0 || req.ListingID == 0 {
		return nil, fmt.Errorf("%w: buyer, creator and listing are required", domainerrors.ErrValidation)
	}
	if req.ExternalRef == "" {
		return nil, fmt.Errorf("%w: external reference is required", domainerrors.ErrValidation)
	}
	if req.PlatformFee+req.CreatorRevenue != req.Amount {
		return nil, fmt.Errorf("%w: fee and revenue must sum to the gross amount", domainerrors.ErrValidation)
	}

	tx := &models.Transaction{
		ExternalRef:    req.ExternalRef,
		BuyerID:        req.BuyerID,
		ListingID:      req.ListingID,
		CreatorID:      req.CreatorID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PlatformFee:    req.PlatformFee,
		CreatorRevenue: req.CreatorRevenue,
		PaymentMethod:  req.PaymentMethod,
		Status:         models.TransactionStatusPending,
		Metadata:       req.Metadata,
	}

	if err := s.repo.Create(tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

func (s *service) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	tx, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (s *service) FindByExternalRef(ctx context.Context, ref string) (*models.Transaction, error) {
	tx, err := s.repo.FindByExternalRef(ref)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

// Transition moves a transaction to the next status. The write is guarded
// on the status the caller observed; a concurrent move surfaces as
// ErrConcurrentModification so the caller can re-read and reapply.
func (s *service) Transition(ctx context.Context, id uint, next string) (*models.Transaction, error) {
	tx, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(tx.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, tx.Status, next)
	}

	if err := s.repo.UpdateStatus(id, tx.Status, next); err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			return nil, domainerrors.ErrConcurrentModification
		}
		return nil, err
	}

	tx.Status = next
	return tx, nil
}

func (s *service) ListForCreator(ctx context.Context, creatorID uint, limit, offset int) ([]models.Transaction, int64, error) {
	return s.repo.ListForCreator(creatorID, limit, offset)
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uint, limit, offset int) ([]models.Transaction, int64, error) {
	return s.repo.ListForBuyer(buyerID, limit, offset)
}
