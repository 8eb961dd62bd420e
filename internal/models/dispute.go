package models

import "time"

// Dispute statuses
const (
	DisputeStatusNeedsResponse  = "needs_response"
	DisputeStatusUnderReview    = "under_review"
	DisputeStatusWon            = "won"
	DisputeStatusLost           = "lost"
	DisputeStatusChargeRefunded = "charge_refunded"
)

// Dispute tracks a chargeback lifecycle attached to a transaction.
// While open (needs_response or under_review) the associated earning is held.
type Dispute struct {
	ID            uint   `gorm:"primarykey"`
	TransactionID uint   `gorm:"not null;index"`
	ExternalRef   string `gorm:"index"` // processor dispute id
	Reason        string
	Amount        int64
	Status        string `gorm:"not null;default:'needs_response'"`
	Resolution    string
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOpen reports whether the dispute still awaits a resolution.
func (d *Dispute) IsOpen() bool {
	return d.Status == DisputeStatusNeedsResponse || d.Status == DisputeStatusUnderReview
}
