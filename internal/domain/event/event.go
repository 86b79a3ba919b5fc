package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event represents a capacity-bounded gathering users can join
type Event struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description"`
	OwnerID      uuid.UUID `json:"owner_id" gorm:"type:uuid;not null"`
	StartDate    time.Time `json:"start_date" gorm:"not null"`
	MinAttendees int       `json:"min_attendees" gorm:"not null"`
	MaxAttendees int       `json:"max_attendees" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Event) TableName() string {
	return "events"
}

// BeforeCreate sets a UUID before creating the record
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewEvent creates a new event with the given parameters
func NewEvent(name, description string, ownerID uuid.UUID, startDate time.Time, minAttendees, maxAttendees int) *Event {
	return &Event{
		ID:           uuid.New(),
		Name:         name,
		Description:  description,
		OwnerID:      ownerID,
		StartDate:    startDate,
		MinAttendees: minAttendees,
		MaxAttendees: maxAttendees,
		CreatedAt:    time.Now(),
	}
}

// IsOwner checks if the given user ID owns this event
func (e *Event) IsOwner(userID uuid.UUID) bool {
	return e.OwnerID == userID
}

// Closed reports whether the event start time has passed. Joins and
// cancellations are rejected after this point; interest toggles remain
// allowed for historical record-keeping.
func (e *Event) Closed(now time.Time) bool {
	return !now.Before(e.StartDate)
}

// Validate checks if the event data is valid
func (e *Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if e.OwnerID == uuid.Nil {
		return fmt.Errorf("owner_id is required")
	}
	if e.MinAttendees < 1 {
		return fmt.Errorf("min_attendees must be at least 1")
	}
	if e.MaxAttendees < e.MinAttendees {
		return fmt.Errorf("max_attendees must be greater than or equal to min_attendees")
	}
	return nil
}
