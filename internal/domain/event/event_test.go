package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	ownerID := uuid.New()
	start := time.Now().Add(24 * time.Hour)

	ev := NewEvent("Star party", "Observación en la sierra", ownerID, start, 5, 30)

	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, "Star party", ev.Name)
	assert.Equal(t, ownerID, ev.OwnerID)
	assert.Equal(t, 5, ev.MinAttendees)
	assert.Equal(t, 30, ev.MaxAttendees)
	assert.True(t, ev.IsOwner(ownerID))
	assert.False(t, ev.IsOwner(uuid.New()))
}

func TestEventValidate(t *testing.T) {
	valid := NewEvent("Star party", "", uuid.New(), time.Now().Add(time.Hour), 1, 10)
	assert.NoError(t, valid.Validate())

	noName := NewEvent("", "", uuid.New(), time.Now().Add(time.Hour), 1, 10)
	assert.Error(t, noName.Validate())

	noOwner := NewEvent("Star party", "", uuid.Nil, time.Now().Add(time.Hour), 1, 10)
	assert.Error(t, noOwner.Validate())

	badMin := NewEvent("Star party", "", uuid.New(), time.Now().Add(time.Hour), 0, 10)
	assert.Error(t, badMin.Validate())

	invertedBounds := NewEvent("Star party", "", uuid.New(), time.Now().Add(time.Hour), 10, 5)
	assert.Error(t, invertedBounds.Validate())
}

func TestEventClosed(t *testing.T) {
	start := time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC)
	ev := NewEvent("Star party", "", uuid.New(), start, 1, 10)

	assert.False(t, ev.Closed(start.Add(-time.Minute)))
	assert.True(t, ev.Closed(start), "the start instant itself closes the event")
	assert.True(t, ev.Closed(start.Add(time.Minute)))
}
