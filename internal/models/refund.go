package models

import "time"

// Refund statuses
const (
	RefundStatusPending   = "pending"
	RefundStatusSucceeded = "succeeded"
	RefundStatusFailed    = "failed"
)

// Refund is a full or partial reversal applied to a transaction.
// The sum of succeeded refund amounts never exceeds the transaction gross.
type Refund struct {
	ID            uint   `gorm:"primarykey"`
	TransactionID uint   `gorm:"not null;index"`
	ExternalRef   string `gorm:"index"` // processor refund id
	Amount        int64  `gorm:"not null"`
	Reason        string
	Status        string `gorm:"not null;default:'pending'"`
	RequestedBy   uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
