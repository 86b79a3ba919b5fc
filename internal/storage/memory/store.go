// Package memory provides an in-memory storage backend. It backs the engine
// and handler tests and serves as a single-process development mode; the
// production backend lives in internal/storage/postgres.
package memory

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/domain/event"
	"github.com/gravadigital/encuentro-api/internal/domain/participation"
)

// Store holds all application state behind one RWMutex. It implements the
// participation Ledger and EventCatalog interfaces plus the outbox store.
type Store struct {
	mu       sync.RWMutex
	events   map[uuid.UUID]*event.Event
	records  map[uuid.UUID]map[uuid.UUID]*participation.Record
	outcomes map[string]*participation.Result
	outbox   []*participation.Promotion
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		events:   make(map[uuid.UUID]*event.Event),
		records:  make(map[uuid.UUID]map[uuid.UUID]*participation.Record),
		outcomes: make(map[string]*participation.Result),
	}
}

// CreateEvent stores a new event
func (s *Store) CreateEvent(ev *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; exists {
		return errors.New("event already exists")
	}

	cp := *ev
	s.events[ev.ID] = &cp
	return nil
}

// GetByID returns the event with the given id
func (s *Store) GetByID(eventID uuid.UUID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, exists := s.events[eventID]
	if !exists {
		return nil, errors.New("event not found")
	}

	cp := *ev
	return &cp, nil
}

// GetAll returns all stored events
func (s *Store) GetAll() ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*event.Event, 0, len(s.events))
	for _, ev := range s.events {
		cp := *ev
		events = append(events, &cp)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

// UpdateBounds changes the attendee bounds of an event
func (s *Store) UpdateBounds(eventID uuid.UUID, minAttendees, maxAttendees int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, exists := s.events[eventID]
	if !exists {
		return errors.New("event not found")
	}

	ev.MinAttendees = minAttendees
	ev.MaxAttendees = maxAttendees
	ev.UpdatedAt = time.Now()
	return nil
}

// Get returns the participation record for (eventID, userID), or nil
func (s *Store) Get(eventID, userID uuid.UUID) (*participation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[eventID][userID]
	if !ok {
		return nil, nil
	}

	cp := *rec
	return &cp, nil
}

// JoinedCount returns the number of joined records for the event
func (s *Store) JoinedCount(eventID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.joinedCountLocked(eventID), nil
}

func (s *Store) joinedCountLocked(eventID uuid.UUID) int {
	count := 0
	for _, rec := range s.records[eventID] {
		if rec.State == participation.StateJoined {
			count++
		}
	}
	return count
}

// JoinedCounts returns joined counts for a batch of events
func (s *Store) JoinedCounts(eventIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[uuid.UUID]int, len(eventIDs))
	for _, id := range eventIDs {
		counts[id] = s.joinedCountLocked(id)
	}
	return counts, nil
}

// WaitlistHead returns the longest-waiting waitlisted record, or nil
func (s *Store) WaitlistHead(eventID uuid.UUID) (*participation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var head *participation.Record
	for _, rec := range s.records[eventID] {
		if rec.State != participation.StateWaitlisted {
			continue
		}
		if head == nil || waitsBefore(rec, head) {
			head = rec
		}
	}

	if head == nil {
		return nil, nil
	}

	cp := *head
	return &cp, nil
}

// waitsBefore reports whether a precedes b in FIFO waitlist order
func waitsBefore(a, b *participation.Record) bool {
	switch {
	case a.JoinedAt == nil || b.JoinedAt == nil:
		return b.JoinedAt == nil
	case a.JoinedAt.Equal(*b.JoinedAt):
		return a.WaitlistSeq < b.WaitlistSeq
	default:
		return a.JoinedAt.Before(*b.JoinedAt)
	}
}

// NextWaitlistSeq returns a sequence number greater than every waitlisted
// record's, so insertion order is total even under coarse clocks
func (s *Store) NextWaitlistSeq(eventID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for _, rec := range s.records[eventID] {
		if rec.State == participation.StateWaitlisted && rec.WaitlistSeq > max {
			max = rec.WaitlistSeq
		}
	}
	return max + 1, nil
}

// Participants lists joined user ids ordered by join time
func (s *Store) Participants(eventID uuid.UUID) ([]uuid.UUID, error) {
	return s.listByState(eventID, participation.StateJoined), nil
}

// Waitlist lists waitlisted user ids in FIFO order
func (s *Store) Waitlist(eventID uuid.UUID) ([]uuid.UUID, error) {
	return s.listByState(eventID, participation.StateWaitlisted), nil
}

func (s *Store) listByState(eventID uuid.UUID, state participation.State) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*participation.Record
	for _, rec := range s.records[eventID] {
		if rec.State == state {
			recs = append(recs, rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		return waitsBefore(recs[i], recs[j])
	})

	ids := make([]uuid.UUID, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.UserID)
	}
	return ids
}

// Interested lists user ids with the interested flag set
func (s *Store) Interested(eventID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for _, rec := range s.records[eventID] {
		if rec.Interested {
			ids = append(ids, rec.UserID)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids, nil
}

// Outcome returns the recorded result for an idempotency key, or nil
func (s *Store) Outcome(key string) (*participation.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.outcomes[key]
	if !ok {
		return nil, nil
	}

	cp := *result
	return &cp, nil
}

// Commit applies a transition atomically under the store mutex
func (s *Store) Commit(commit participation.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range commit.Records {
		byUser, ok := s.records[rec.EventID]
		if !ok {
			byUser = make(map[uuid.UUID]*participation.Record)
			s.records[rec.EventID] = byUser
		}
		cp := *rec
		cp.UpdatedAt = time.Now()
		if existing, ok := byUser[rec.UserID]; ok {
			cp.CreatedAt = existing.CreatedAt
		} else {
			cp.CreatedAt = cp.UpdatedAt
		}
		byUser[rec.UserID] = &cp
	}

	for _, fact := range commit.Promotions {
		cp := *fact
		s.outbox = append(s.outbox, &cp)
	}

	if commit.IdempotencyKey != "" && commit.Outcome != nil {
		cp := *commit.Outcome
		s.outcomes[commit.IdempotencyKey] = &cp
	}

	return nil
}

// NextPending returns undispatched promotion facts, oldest first
func (s *Store) NextPending(limit int) ([]*participation.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*participation.Promotion
	for _, fact := range s.outbox {
		if fact.DispatchedAt != nil {
			continue
		}
		cp := *fact
		pending = append(pending, &cp)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

// MarkDispatched flags a promotion fact as delivered
func (s *Store) MarkDispatched(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fact := range s.outbox {
		if fact.ID == id {
			now := time.Now()
			fact.DispatchedAt = &now
			return nil
		}
	}
	return errors.New("promotion fact not found")
}

// MarkFailed records a failed delivery attempt
func (s *Store) MarkFailed(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fact := range s.outbox {
		if fact.ID == id {
			fact.Attempts++
			return nil
		}
	}
	return errors.New("promotion fact not found")
}
