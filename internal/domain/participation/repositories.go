package participation

import (
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/domain/event"
)

// EventCatalog supplies event bounds and start times. The catalog is owned by
// the event domain; the engine only reads it and re-validates bounds on every
// transition, since the owner may change them between actions.
type EventCatalog interface {
	GetByID(eventID uuid.UUID) (*event.Event, error)
}

// Ledger is the durable participation store. Reads issued while holding an
// event's critical section must reflect every commit that completed before
// the call; list reads used by views may be eventually consistent.
type Ledger interface {
	// Get returns the record for (eventID, userID), or nil when the pair has
	// never acted on the event.
	Get(eventID, userID uuid.UUID) (*Record, error)

	// JoinedCount returns the number of records with state=joined.
	JoinedCount(eventID uuid.UUID) (int, error)

	// JoinedCounts answers the batch count query for list views. Every
	// requested id is present in the result, absent events count zero.
	JoinedCounts(eventIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// WaitlistHead returns the longest-waiting waitlisted record, ordered by
	// joined_at ascending with the waitlist sequence as tiebreaker, or nil
	// when the waitlist is empty.
	WaitlistHead(eventID uuid.UUID) (*Record, error)

	// NextWaitlistSeq returns the next strictly-increasing waitlist sequence
	// number for the event. Only called inside the event's critical section.
	NextWaitlistSeq(eventID uuid.UUID) (int64, error)

	// Participants lists user ids with state=joined, joined_at ascending.
	Participants(eventID uuid.UUID) ([]uuid.UUID, error)

	// Waitlist lists user ids with state=waitlisted in FIFO order.
	Waitlist(eventID uuid.UUID) ([]uuid.UUID, error)

	// Interested lists user ids with interested=true.
	Interested(eventID uuid.UUID) ([]uuid.UUID, error)

	// Outcome returns the recorded result for an idempotency key, or nil when
	// the key has not been seen.
	Outcome(key string) (*Result, error)

	// Commit persists a transition atomically: mutated records, the promotion
	// facts opened by it, and the idempotency outcome all land in a single
	// write, or none of them do.
	Commit(commit Commit) error
}

// Commit bundles everything one transition writes
type Commit struct {
	Records    []*Record
	Promotions []*Promotion

	// IdempotencyKey and Outcome record the result for replay detection.
	// Empty key means the caller did not supply one.
	IdempotencyKey string
	Outcome        *Result
}

// Promotion is the durable fact that a waitlisted user was moved into the
// joined state. It is written in the same transaction as the promoted record
// and delivered to the notifier asynchronously by the outbox dispatcher.
type Promotion struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	EventID      uuid.UUID  `json:"event_id" gorm:"type:uuid;not null;index"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;not null"`
	OccurredAt   time.Time  `json:"occurred_at" gorm:"not null"`
	Attempts     int        `json:"attempts" gorm:"not null;default:0"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (Promotion) TableName() string {
	return "promotion_outbox"
}
