package models

import (
	"time"
)

// Transaction statuses
const (
	TransactionStatusPending           = "pending"
	TransactionStatusSucceeded         = "succeeded"
	TransactionStatusFailed            = "failed"
	TransactionStatusCanceled          = "canceled"
	TransactionStatusRefunded          = "refunded"
	TransactionStatusPartiallyRefunded = "partially_refunded"
	TransactionStatusDisputed          = "disputed"
)

// Transaction records one purchase attempt and its settlement lifecycle.
// Monetary fields are integer minor currency units (cents).
type Transaction struct {
	ID             uint   `gorm:"primarykey"`
	ExternalRef    string `gorm:"uniqueIndex;not null"` // processor payment intent id
	BuyerID        uint   `gorm:"not null;index"`
	ListingID      uint   `gorm:"not null"`
	CreatorID      uint   `gorm:"not null;index"`
	Amount         int64  `gorm:"not null"` // gross
	Currency       string `gorm:"not null;default:'usd'"`
	PlatformFee    int64  `gorm:"not null"`
	CreatorRevenue int64  `gorm:"not null"`
	PaymentMethod  string
	Status         string `gorm:"not null;default:'pending';index"`
	Metadata       JSON   `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
