package participation

import (
	"sync"

	"github.com/google/uuid"
)

// eventLocks hands out one mutex per event id so that transitions for
// different events never contend with each other. Locks are kept for the
// process lifetime; the set is bounded by the number of events touched.
type eventLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newEventLocks() *eventLocks {
	return &eventLocks{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// get returns the mutex owning the event's critical section
func (l *eventLocks) get(eventID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[eventID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[eventID] = m
	}
	return m
}
