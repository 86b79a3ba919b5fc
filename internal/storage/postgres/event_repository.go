package postgres

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/encuentro-api/internal/domain/event"
	"github.com/gravadigital/encuentro-api/internal/logger"
)

// EventRepository implements the event catalog using GORM
type EventRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewEventRepository creates a new PostgreSQL event repository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{
		db:  db,
		log: logger.Repository("event"),
	}
}

// Create stores a new event
func (r *EventRepository) Create(ev *event.Event) error {
	if err := ev.Validate(); err != nil {
		r.log.Error("event validation failed", "error", err, "event_id", ev.ID)
		return fmt.Errorf("event validation failed: %w", err)
	}

	if err := r.db.Create(ev).Error; err != nil {
		r.log.Error("failed to create event", "error", err, "event_id", ev.ID)
		return fmt.Errorf("failed to create event: %w", err)
	}

	r.log.Info("event created", "event_id", ev.ID, "name", ev.Name,
		"min_attendees", ev.MinAttendees, "max_attendees", ev.MaxAttendees)
	return nil
}

// GetByID returns the event with the given id
func (r *EventRepository) GetByID(eventID uuid.UUID) (*event.Event, error) {
	var ev event.Event
	if err := r.db.First(&ev, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("event not found")
		}
		r.log.Error("failed to retrieve event", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("failed to retrieve event: %w", err)
	}
	return &ev, nil
}

// GetAll returns all events ordered by start date
func (r *EventRepository) GetAll() ([]*event.Event, error) {
	var events []*event.Event
	if err := r.db.Order("start_date ASC").Find(&events).Error; err != nil {
		r.log.Error("failed to retrieve events", "error", err)
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}
	return events, nil
}

// UpdateBounds changes the attendee bounds of an event. The participation
// engine re-validates against the catalog on every transition, so the new
// bounds take effect on the next action; callers should reconcile capacity
// afterwards to drain the waitlist into newly opened slots.
func (r *EventRepository) UpdateBounds(eventID uuid.UUID, minAttendees, maxAttendees int) error {
	res := r.db.Model(&event.Event{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"min_attendees": minAttendees,
			"max_attendees": maxAttendees,
		})
	if res.Error != nil {
		r.log.Error("failed to update event bounds", "event_id", eventID, "error", res.Error)
		return fmt.Errorf("failed to update event bounds: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New("event not found")
	}

	r.log.Info("event bounds updated", "event_id", eventID,
		"min_attendees", minAttendees, "max_attendees", maxAttendees)
	return nil
}
