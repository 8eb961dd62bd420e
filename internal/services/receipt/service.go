// Package receipt issues immutable proofs of purchase for succeeded
// transactions.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no receipt exists for the transaction.
var ErrNotFound = errors.New("receipt not found")

// Service is the receipt generator contract.
type Service interface {
	Create(ctx context.Context, tx *models.Transaction) (*models.Receipt, error)
	GetByTransaction(ctx context.Context, txID uint) (*models.Receipt, error)
}

type service struct {
	repo repositories.ReceiptRepository
}

// NewService creates a receipt service.
func NewService(repo repositories.ReceiptRepository) Service {
	if repo == nil {
		panic("receipt repository is required")
	}
	return &service{repo: repo}
}

// Create issues the receipt for a succeeded transaction, snapshotting its
// amounts. At most one receipt exists per transaction; calling Create again
// returns the existing one, which keeps settlement retries safe.
func (s *service) Create(ctx context.Context, tx *models.Transaction) (*models.Receipt, error) {
	rc := &models.Receipt{
		ReceiptNumber: fmt.Sprintf("RCP-%s", uuid.NewString()),
		TransactionID: tx.ID,
		BuyerID:       tx.BuyerID,
		CreatorID:     tx.CreatorID,
		ListingID:     tx.ListingID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		PlatformFee:   tx.PlatformFee,
		IssuedAt:      time.Now(),
	}

	if err := s.repo.Create(rc); err != nil {
		if errors.Is(err, repositories.ErrReceiptExists) {
			return s.GetByTransaction(ctx, tx.ID)
		}
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}
	return rc, nil
}

func (s *service) GetByTransaction(ctx context.Context, txID uint) (*models.Receipt, error) {
	rc, err := s.repo.FindByTransactionID(txID)
	if err != nil {
		if errors.Is(err, repositories.ErrReceiptNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rc, nil
}
