package repositories

import (
	"errors"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository is the persistence contract for the transaction
// ledger. UpdateStatus is a guarded write: the row is only updated if its
// current status matches the expected one, which gives callers optimistic
// concurrency over status moves.
type TransactionRepository interface {
	Create(tx *models.Transaction) error
	FindByID(id uint) (*models.Transaction, error)
	FindByExternalRef(ref string) (*models.Transaction, error)
	UpdateStatus(id uint, expected, next string) error
	Save(tx *models.Transaction) error
	ListForCreator(creatorID uint, limit, offset int) ([]models.Transaction, int64, error)
	ListForBuyer(buyerID uint, limit, offset int) ([]models.Transaction, int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a gorm-backed transaction repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *transactionRepository) FindByID(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) FindByExternalRef(ref string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.Where("external_ref = ?", ref).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) UpdateStatus(id uint, expected, next string) error {
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *transactionRepository) Save(tx *models.Transaction) error {
	return r.db.Save(tx).Error
}

func (r *transactionRepository) ListForCreator(creatorID uint, limit, offset int) ([]models.Transaction, int64, error) {
	return r.list("creator_id = ?", creatorID, limit, offset)
}

func (r *transactionRepository) ListForBuyer(buyerID uint, limit, offset int) ([]models.Transaction, int64, error) {
	return r.list("buyer_id = ?", buyerID, limit, offset)
}

func (r *transactionRepository) list(query string, id uint, limit, offset int) ([]models.Transaction, int64, error) {
	var txs []models.Transaction
	var total int64

	if err := r.db.Model(&models.Transaction{}).Where(query, id).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where(query, id).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&txs).Error
	return txs, total, err
}
