package participation

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/domain/event"
	"github.com/gravadigital/encuentro-api/internal/logger"
)

// Engine decides, for any (event, user) pair, which attendance state applies.
// Every mutating call for one event runs inside that event's exclusive
// section; calls for different events never block each other.
type Engine struct {
	catalog   EventCatalog
	ledger    Ledger
	scheduler *PromotionScheduler
	locks     *eventLocks
	now       func() time.Time
	log       *log.Logger
}

// Option configures the engine
type Option func(*Engine)

// WithClock overrides the engine's time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.scheduler.now = now
	}
}

// NewEngine creates a transition engine over the given catalog and ledger
func NewEngine(catalog EventCatalog, ledger Ledger, opts ...Option) *Engine {
	e := &Engine{
		catalog:   catalog,
		ledger:    ledger,
		scheduler: NewPromotionScheduler(ledger),
		locks:     newEventLocks(),
		now:       time.Now,
		log:       logger.Service("transition_engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ApplyOptions carries the optional concurrency-control inputs of an action
type ApplyOptions struct {
	// ExpectedVersion, when set, rejects the action with ErrVersionConflict
	// if the ledger record has moved on since the caller last read it.
	ExpectedVersion *int

	// IdempotencyKey, when non-empty, makes retries of the same logical
	// action return the recorded outcome instead of reapplying it.
	IdempotencyKey string
}

// ApplyAction applies one participation action and returns the resulting
// state. Legal actions always return a definite result; illegal actions
// return a specific error kind and change nothing.
func (e *Engine) ApplyAction(eventID, userID uuid.UUID, action Action, opts ApplyOptions) (*Result, error) {
	ev, err := e.catalog.GetByID(eventID)
	if err != nil {
		return nil, ErrEventNotFound
	}

	// Per-event critical section: all reads below are authoritative and the
	// commit at the end is the single serialization point.
	mu := e.locks.get(eventID)
	mu.Lock()
	defer mu.Unlock()

	if opts.IdempotencyKey != "" {
		outcome, err := e.ledger.Outcome(opts.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if outcome != nil {
			e.log.Debug("idempotent replay detected",
				"event_id", eventID, "user_id", userID, "action", action.String())
			return outcome, nil
		}
	}

	rec, err := e.ledger.Get(eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read participation record: %w", err)
	}
	created := rec == nil
	if created {
		rec = NewRecord(eventID, userID)
	}

	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != rec.Version {
		return nil, ErrVersionConflict
	}

	switch action {
	case ActionJoin:
		return e.applyJoin(ev, rec, opts)
	case ActionCancel:
		return e.applyCancel(ev, rec, opts)
	case ActionMarkInterested:
		return e.applyInterest(ev, rec, true, opts)
	case ActionUnmarkInterested:
		return e.applyInterest(ev, rec, false, opts)
	default:
		return nil, ErrUnknownAction
	}
}

// applyJoin moves the record into joined or waitlisted, depending on
// remaining capacity at the serialization point. Repeated joins are no-ops.
func (e *Engine) applyJoin(ev *event.Event, rec *Record, opts ApplyOptions) (*Result, error) {
	if ev.Closed(e.now()) {
		return nil, ErrEventClosed
	}

	joined, err := e.ledger.JoinedCount(ev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read joined count: %w", err)
	}

	if rec.Attending() {
		// Idempotent: the second join returns the same state as the first.
		return e.commit(rec, nil, false, joined, opts)
	}

	now := e.now()
	rec.JoinedAt = &now

	if joined < ev.MaxAttendees {
		rec.State = StateJoined
		rec.WaitlistSeq = 0
		joined++
	} else {
		// Capacity is exhausted at the serialization point, so the join
		// lands on the waitlist tail. Two concurrent joins racing for the
		// last slot resolve here: the loser is waitlisted, never errored.
		seq, err := e.ledger.NextWaitlistSeq(ev.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate waitlist sequence: %w", err)
		}
		rec.State = StateWaitlisted
		rec.WaitlistSeq = seq
	}
	rec.Version++

	e.log.Info("participation transition",
		"event_id", ev.ID, "user_id", rec.UserID,
		"action", ActionJoin.String(), "state", rec.State.String(),
		"joined_count", joined)

	return e.commit(rec, nil, true, joined, opts)
}

// applyCancel moves a joined or waitlisted record back to none. Cancelling a
// joined record frees a slot and triggers promotion of the waitlist head.
func (e *Engine) applyCancel(ev *event.Event, rec *Record, opts ApplyOptions) (*Result, error) {
	if ev.Closed(e.now()) {
		return nil, ErrEventClosed
	}

	joined, err := e.ledger.JoinedCount(ev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read joined count: %w", err)
	}

	switch rec.State {
	case StateJoined:
		rec.State = StateNone
		rec.JoinedAt = nil
		rec.WaitlistSeq = 0
		rec.Version++
		joined--

		result, err := e.commit(rec, nil, true, joined, opts)
		if err != nil {
			return nil, err
		}

		// A slot just opened; promote the waitlist head while still holding
		// the event's critical section.
		promoted, err := e.scheduler.PromoteIfPossible(ev)
		if err != nil {
			return nil, err
		}
		if promoted > 0 {
			e.log.Info("waitlist promotion after cancel",
				"event_id", ev.ID, "promoted", promoted)
		}
		return result, nil

	case StateWaitlisted:
		// Leaving the waitlist frees no slot, so no promotion runs.
		rec.State = StateNone
		rec.JoinedAt = nil
		rec.WaitlistSeq = 0
		rec.Version++
		return e.commit(rec, nil, true, joined, opts)

	default:
		// No attendance to cancel. The interest flag is untouched: the two
		// action families are independent.
		return e.commit(rec, nil, false, joined, opts)
	}
}

// applyInterest toggles the interested flag. Interest is orthogonal to
// attendance and remains allowed after the event starts.
func (e *Engine) applyInterest(ev *event.Event, rec *Record, interested bool, opts ApplyOptions) (*Result, error) {
	joined, err := e.ledger.JoinedCount(ev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read joined count: %w", err)
	}

	if rec.Interested == interested {
		return e.commit(rec, nil, false, joined, opts)
	}

	rec.Interested = interested
	rec.Version++

	return e.commit(rec, nil, true, joined, opts)
}

// commit persists a transition and builds its result. Records are only
// written when the action actually mutated them; idempotency outcomes are
// recorded either way so replays observe no-ops too.
func (e *Engine) commit(rec *Record, promotions []*Promotion, mutated bool, joined int, opts ApplyOptions) (*Result, error) {
	result := &Result{
		EventID:     rec.EventID,
		UserID:      rec.UserID,
		State:       rec.State,
		Interested:  rec.Interested,
		JoinedCount: joined,
		Version:     rec.Version,
	}

	commit := Commit{
		Promotions:     promotions,
		IdempotencyKey: opts.IdempotencyKey,
		Outcome:        result,
	}
	if mutated {
		commit.Records = []*Record{rec}
	}

	if len(commit.Records) == 0 && len(commit.Promotions) == 0 && commit.IdempotencyKey == "" {
		// Nothing to write.
		return result, nil
	}

	if err := e.ledger.Commit(commit); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	return result, nil
}

// ReconcileCapacity re-runs promotion for an event after an external bounds
// change. Raising max_attendees opens slots that the waitlist should fill;
// the loop tolerates bulk increases.
func (e *Engine) ReconcileCapacity(eventID uuid.UUID) (int, error) {
	ev, err := e.catalog.GetByID(eventID)
	if err != nil {
		return 0, ErrEventNotFound
	}

	mu := e.locks.get(eventID)
	mu.Lock()
	defer mu.Unlock()

	return e.scheduler.PromoteIfPossible(ev)
}
