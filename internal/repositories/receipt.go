package repositories

import (
	"errors"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// ReceiptRepository is the persistence contract for purchase receipts.
// Receipts are insert-only; there is deliberately no update or delete.
type ReceiptRepository interface {
	Create(rc *models.Receipt) error
	FindByTransactionID(txID uint) (*models.Receipt, error)
}

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a gorm-backed receipt repository.
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(rc *models.Receipt) error {
	if err := r.db.Create(rc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrReceiptExists
		}
		return err
	}
	return nil
}

func (r *receiptRepository) FindByTransactionID(txID uint) (*models.Receipt, error) {
	var rc models.Receipt
	if err := r.db.Where("transaction_id = ?", txID).First(&rc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &rc, nil
}
