package repositories

import (
	"errors"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// ListingRepository resolves marketplace items for purchase initiation.
type ListingRepository interface {
	FindByID(id uint) (*models.Listing, error)
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a gorm-backed listing repository.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) FindByID(id uint) (*models.Listing, error) {
	var l models.Listing
	if err := r.db.First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}
