package repositories

import (
	"errors"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// EventRepository is the persistence contract for the processed-event
// deduplication set and the dead-letter queue.
type EventRepository interface {
	FindProcessed(eventID string) (*models.ProcessedEvent, error)
	MarkProcessed(ev *models.ProcessedEvent) error
	DeadLetter(ev *models.DeadLetterEvent) error
	ListDeadLetters(limit, offset int) ([]models.DeadLetterEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a gorm-backed event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindProcessed(eventID string) (*models.ProcessedEvent, error) {
	var ev models.ProcessedEvent
	if err := r.db.Where("event_id = ?", eventID).First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (r *eventRepository) MarkProcessed(ev *models.ProcessedEvent) error {
	if err := r.db.Create(ev).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEventProcessed
		}
		return err
	}
	return nil
}

func (r *eventRepository) DeadLetter(ev *models.DeadLetterEvent) error {
	return r.db.Create(ev).Error
}

func (r *eventRepository) ListDeadLetters(limit, offset int) ([]models.DeadLetterEvent, error) {
	var events []models.DeadLetterEvent
	err := r.db.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&events).Error
	return events, err
}
