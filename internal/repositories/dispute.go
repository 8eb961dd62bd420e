package repositories

import (
	"errors"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// DisputeRepository is the persistence contract for chargeback records.
type DisputeRepository interface {
	Create(d *models.Dispute) error
	Save(d *models.Dispute) error
	FindByID(id uint) (*models.Dispute, error)
	FindOpenByTransaction(txID uint) (*models.Dispute, error)
	ListByTransaction(txID uint) ([]models.Dispute, error)
}

type disputeRepository struct {
	db *gorm.DB
}

// NewDisputeRepository creates a gorm-backed dispute repository.
func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) Create(d *models.Dispute) error {
	return r.db.Create(d).Error
}

func (r *disputeRepository) Save(d *models.Dispute) error {
	return r.db.Save(d).Error
}

func (r *disputeRepository) FindByID(id uint) (*models.Dispute, error) {
	var d models.Dispute
	if err := r.db.First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *disputeRepository) FindOpenByTransaction(txID uint) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.Where("transaction_id = ? AND status IN ?", txID,
		[]string{models.DisputeStatusNeedsResponse, models.DisputeStatusUnderReview}).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *disputeRepository) ListByTransaction(txID uint) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.Where("transaction_id = ?", txID).
		Order("created_at DESC").
		Find(&disputes).Error
	return disputes, err
}
