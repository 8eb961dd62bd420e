package models

import "time"

// Earning statuses
const (
	EarningStatusAvailable = "available" // payable to the creator
	EarningStatusPending   = "pending"   // held, or permanently forfeited with net 0
	EarningStatusPaid      = "paid"      // settled to the creator
)

// Earning is a creator's payable share of one succeeded transaction.
// Exactly one Earning exists per succeeded transaction.
type Earning struct {
	ID            uint  `gorm:"primarykey"`
	TransactionID uint  `gorm:"uniqueIndex;not null"`
	CreatorID     uint  `gorm:"not null;index"`
	ListingID     uint  `gorm:"not null"`
	Amount        int64 `gorm:"not null"` // gross
	PlatformFee   int64 `gorm:"not null"`
	NetAmount     int64 `gorm:"not null"`
	Status        string `gorm:"not null;default:'available';index"`
	PayoutDate    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EarningTotals aggregates a creator's earnings over a period.
type EarningTotals struct {
	Available  int64 `json:"available"`
	Paid       int64 `json:"paid"`
	Total      int64 `json:"total"`
	SalesCount int64 `json:"sales_count"`
}

// ListingSales is one row of a creator's top-sellers aggregation.
type ListingSales struct {
	ListingID uint  `json:"listing_id"`
	Sales     int64 `json:"sales"`
	Net       int64 `json:"net"`
}
