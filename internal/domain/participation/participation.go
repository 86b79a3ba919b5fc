package participation

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// State represents the attendance state of a (event, user) pair. Interest is
// tracked separately on the record because it is not a capacity-consuming
// commitment.
type State byte

const (
	StateNone State = iota
	StateJoined
	StateWaitlisted
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateJoined:
		return "joined"
	case StateWaitlisted:
		return "waitlisted"
	default:
		return "unknown"
	}
}

// StateFromString converts a string to a State
func StateFromString(s string) (State, bool) {
	switch s {
	case "none":
		return StateNone, true
	case "joined":
		return StateJoined, true
	case "waitlisted":
		return StateWaitlisted, true
	default:
		return StateNone, false
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *State) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	state, valid := StateFromString(str)
	if !valid {
		return fmt.Errorf("invalid attendance state: %s", str)
	}
	*s = state
	return nil
}

// Scan implements the sql.Scanner interface for database deserialization
func (s *State) Scan(value interface{}) error {
	if value == nil {
		*s = StateNone
		return nil
	}

	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("cannot scan %T into State", value)
	}

	state, valid := StateFromString(str)
	if !valid {
		return fmt.Errorf("invalid attendance state value: %s", str)
	}
	*s = state
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (s State) Value() (driver.Value, error) {
	return s.String(), nil
}

// Action is a client-requested transition. JOIN and CANCEL form the
// attendance family; MARK_INTERESTED and UNMARK_INTERESTED form the interest
// family. The two families never affect each other.
type Action byte

const (
	ActionJoin Action = iota
	ActionCancel
	ActionMarkInterested
	ActionUnmarkInterested
)

func (a Action) String() string {
	switch a {
	case ActionJoin:
		return "join"
	case ActionCancel:
		return "cancel"
	case ActionMarkInterested:
		return "mark_interested"
	case ActionUnmarkInterested:
		return "unmark_interested"
	default:
		return "unknown"
	}
}

// ActionFromString converts a string to an Action
func ActionFromString(s string) (Action, bool) {
	switch s {
	case "join":
		return ActionJoin, true
	case "cancel":
		return ActionCancel, true
	case "mark_interested":
		return ActionMarkInterested, true
	case "unmark_interested":
		return ActionUnmarkInterested, true
	default:
		return ActionJoin, false
	}
}

// Record is the durable participation ledger entry for one (event, user)
// pair. Records are created lazily on the first action and never physically
// removed; cancelling only moves the state back to none.
type Record struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	EventID     uuid.UUID  `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_participations_event_user"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_participations_event_user"`
	State       State      `json:"state" gorm:"type:attendance_state;not null;default:'none'"`
	Interested  bool       `json:"interested" gorm:"not null;default:false"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`
	WaitlistSeq int64      `json:"waitlist_seq,omitempty" gorm:"not null;default:0"`
	Version     int        `json:"version" gorm:"not null;default:0"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Record) TableName() string {
	return "participations"
}

// BeforeCreate sets a UUID before creating the record
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewRecord creates a fresh ledger entry in the none state
func NewRecord(eventID, userID uuid.UUID) *Record {
	return &Record{
		ID:      uuid.New(),
		EventID: eventID,
		UserID:  userID,
		State:   StateNone,
	}
}

// Attending reports whether the record currently consumes or reserves a slot
func (r *Record) Attending() bool {
	return r.State == StateJoined || r.State == StateWaitlisted
}

// Result is the outcome of a successfully applied action
type Result struct {
	EventID     uuid.UUID `json:"event_id"`
	UserID      uuid.UUID `json:"user_id"`
	State       State     `json:"state"`
	Interested  bool      `json:"interested"`
	JoinedCount int       `json:"joined_count"`
	Version     int       `json:"version"`
}
