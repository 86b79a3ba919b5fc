package participation

import "errors"

// Error kinds surfaced to callers. Constraint violations are detected and
// resolved inside the per-event critical section before any write commits, so
// a legal action always returns a definite resulting state.
var (
	// ErrEventNotFound indicates the event id is unknown to the catalog
	ErrEventNotFound = errors.New("event not found")

	// ErrEventClosed indicates the event start time has passed; joins and
	// cancellations are rejected, interest toggles still go through
	ErrEventClosed = errors.New("event already started")

	// ErrVersionConflict indicates the supplied expected version no longer
	// matches the ledger; the caller should re-read and retry
	ErrVersionConflict = errors.New("participation version conflict")

	// ErrUnknownAction indicates an action outside the defined set
	ErrUnknownAction = errors.New("unknown participation action")
)
