package repositories

import (
	"errors"
	"time"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// EarningRepository is the persistence contract for the earnings ledger.
// CompareAndSetStatus implements the per-earning optimistic concurrency the
// ledger requires: the update only applies while the stored status still
// matches the expected one.
type EarningRepository interface {
	Create(e *models.Earning) error
	FindByID(id uint) (*models.Earning, error)
	FindByTransactionID(txID uint) (*models.Earning, error)
	CompareAndSetStatus(id uint, expected, next string, extra map[string]interface{}) error
	TotalsForCreator(creatorID uint, since time.Time) (*models.EarningTotals, error)
	TopListings(creatorID uint, since time.Time, limit int) ([]models.ListingSales, error)
}

type earningRepository struct {
	db *gorm.DB
}

// NewEarningRepository creates a gorm-backed earning repository.
func NewEarningRepository(db *gorm.DB) EarningRepository {
	return &earningRepository{db: db}
}

func (r *earningRepository) Create(e *models.Earning) error {
	if err := r.db.Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEarningExists
		}
		return err
	}
	return nil
}

func (r *earningRepository) FindByID(id uint) (*models.Earning, error) {
	var e models.Earning
	if err := r.db.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEarningNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *earningRepository) FindByTransactionID(txID uint) (*models.Earning, error) {
	var e models.Earning
	if err := r.db.Where("transaction_id = ?", txID).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEarningNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *earningRepository) CompareAndSetStatus(id uint, expected, next string, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": next}
	for k, v := range extra {
		updates[k] = v
	}

	res := r.db.Model(&models.Earning{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *earningRepository) TotalsForCreator(creatorID uint, since time.Time) (*models.EarningTotals, error) {
	var totals models.EarningTotals

	row := r.db.Model(&models.Earning{}).
		Where("creator_id = ? AND created_at >= ?", creatorID, since).
		Select(`COALESCE(SUM(CASE WHEN status = 'available' THEN net_amount ELSE 0 END), 0) as available,
			COALESCE(SUM(CASE WHEN status = 'paid' THEN net_amount ELSE 0 END), 0) as paid,
			COALESCE(SUM(net_amount), 0) as total,
			COUNT(*) as sales_count`).
		Row()

	err := row.Scan(&totals.Available, &totals.Paid, &totals.Total, &totals.SalesCount)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func (r *earningRepository) TopListings(creatorID uint, since time.Time, limit int) ([]models.ListingSales, error) {
	var rows []models.ListingSales
	err := r.db.Model(&models.Earning{}).
		Where("creator_id = ? AND created_at >= ?", creatorID, since).
		Select("listing_id, COUNT(*) as sales, COALESCE(SUM(net_amount), 0) as net").
		Group("listing_id").
		Order("net DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
