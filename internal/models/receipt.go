package models

import "time"

// Receipt is an immutable proof of purchase, created once per succeeded
// transaction. It snapshots the amounts at settlement time and is never
// updated or deleted.
type Receipt struct {
	ID            uint   `gorm:"primarykey"`
	ReceiptNumber string `gorm:"uniqueIndex;not null"`
	TransactionID uint   `gorm:"uniqueIndex;not null"`
	BuyerID       uint   `gorm:"not null;index"`
	CreatorID     uint   `gorm:"not null"`
	ListingID     uint   `gorm:"not null"`
	Amount        int64  `gorm:"not null"`
	Currency      string `gorm:"not null"`
	PlatformFee   int64  `gorm:"not null"`
	IssuedAt      time.Time
}
