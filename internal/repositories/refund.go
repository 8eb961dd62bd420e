package repositories

import (
	"errors"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// RefundRepository is the persistence contract for refund records.
type RefundRepository interface {
	Create(r *models.Refund) error
	Save(r *models.Refund) error
	FindByID(id uint) (*models.Refund, error)
	ListByTransaction(txID uint) ([]models.Refund, error)
	SumSucceededByTransaction(txID uint) (int64, error)
}

type refundRepository struct {
	db *gorm.DB
}

// NewRefundRepository creates a gorm-backed refund repository.
func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &refundRepository{db: db}
}

func (r *refundRepository) Create(refund *models.Refund) error {
	return r.db.Create(refund).Error
}

func (r *refundRepository) Save(refund *models.Refund) error {
	return r.db.Save(refund).Error
}

func (r *refundRepository) FindByID(id uint) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.First(&refund, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefundNotFound
		}
		return nil, err
	}
	return &refund, nil
}

func (r *refundRepository) ListByTransaction(txID uint) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.Where("transaction_id = ?", txID).
		Order("created_at DESC").
		Find(&refunds).Error
	return refunds, err
}

func (r *refundRepository) SumSucceededByTransaction(txID uint) (int64, error) {
	var sum int64
	err := r.db.Model(&models.Refund{}).
		Where("transaction_id = ? AND status = ?", txID, models.RefundStatusSucceeded).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&sum)
	return sum, err
}
