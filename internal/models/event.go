package models

import "time"

// Processed-event result codes
const (
	EventResultApplied      = "applied"
	EventResultIgnored      = "ignored"
	EventResultDeadLettered = "dead_lettered"
)

// ProcessedEvent is the durable deduplication record for processor
// notifications. External delivery is at-least-once; a repeated event id is
// answered from this table without re-applying effects.
type ProcessedEvent struct {
	ID          uint   `gorm:"primarykey"`
	EventID     string `gorm:"uniqueIndex;not null"`
	EventType   string `gorm:"not null"`
	ExternalRef string `gorm:"index"`
	Result      string `gorm:"not null"`
	ProcessedAt time.Time
}

// DeadLetterEvent holds events that could not be matched to a transaction
// after bounded retries. Kept for manual replay.
type DeadLetterEvent struct {
	ID          uint   `gorm:"primarykey"`
	EventID     string `gorm:"index;not null"`
	EventType   string `gorm:"not null"`
	ExternalRef string
	Payload     JSON `gorm:"type:jsonb"`
	Reason      string
	Attempts    int
	CreatedAt   time.Time
}
