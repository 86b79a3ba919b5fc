package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/logger"
)

// pgUniqueViolation is the PostgreSQL error code for duplicate keys
const pgUniqueViolation = "23505"

// IdempotencyOutcome stores the recorded result of an idempotent action
type IdempotencyOutcome struct {
	Key         string    `gorm:"primaryKey;column:key"`
	EventID     uuid.UUID `gorm:"type:uuid;not null"`
	UserID      uuid.UUID `gorm:"type:uuid;not null"`
	State       participation.State
	Interested  bool
	JoinedCount int
	Version     int
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (IdempotencyOutcome) TableName() string {
	return "idempotency_outcomes"
}

// ParticipationRepository implements the participation Ledger using GORM
type ParticipationRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewParticipationRepository creates a new PostgreSQL participation ledger
func NewParticipationRepository(db *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{
		db:  db,
		log: logger.Repository("participation"),
	}
}

// Get returns the record for (eventID, userID), or nil when none exists
func (r *ParticipationRepository) Get(eventID, userID uuid.UUID) (*participation.Record, error) {
	var rec participation.Record
	err := r.db.Where("event_id = ? AND user_id = ?", eventID, userID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error("failed to retrieve participation record", "event_id", eventID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to retrieve participation record: %w", err)
	}
	return &rec, nil
}

// JoinedCount returns the number of joined records for the event
func (r *ParticipationRepository) JoinedCount(eventID uuid.UUID) (int, error) {
	var count int64
	err := r.db.Model(&participation.Record{}).
		Where("event_id = ? AND state = ?", eventID, participation.StateJoined).
		Count(&count).Error
	if err != nil {
		r.log.Error("failed to count joined participants", "event_id", eventID, "error", err)
		return 0, fmt.Errorf("failed to count joined participants: %w", err)
	}
	return int(count), nil
}

// JoinedCounts answers the batch count query with a single grouped scan.
// No per-event lock is taken; list views tolerate slightly stale counts.
func (r *ParticipationRepository) JoinedCounts(eventIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	rows := []struct {
		EventID uuid.UUID
		Total   int
	}{}

	err := r.db.Model(&participation.Record{}).
		Select("event_id, COUNT(*) AS total").
		Where("event_id IN ? AND state = ?", eventIDs, participation.StateJoined).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		r.log.Error("failed to aggregate joined counts", "events", len(eventIDs), "error", err)
		return nil, fmt.Errorf("failed to aggregate joined counts: %w", err)
	}

	for _, row := range rows {
		counts[row.EventID] = row.Total
	}
	return counts, nil
}

// WaitlistHead returns the longest-waiting waitlisted record, or nil
func (r *ParticipationRepository) WaitlistHead(eventID uuid.UUID) (*participation.Record, error) {
	var rec participation.Record
	err := r.db.Where("event_id = ? AND state = ?", eventID, participation.StateWaitlisted).
		Order("joined_at ASC, waitlist_seq ASC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error("failed to retrieve waitlist head", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("failed to retrieve waitlist head: %w", err)
	}
	return &rec, nil
}

// NextWaitlistSeq returns a sequence number greater than every currently
// waitlisted record's. Only called inside the event's critical section, so
// two insertions can never observe the same maximum.
func (r *ParticipationRepository) NextWaitlistSeq(eventID uuid.UUID) (int64, error) {
	var max int64
	err := r.db.Model(&participation.Record{}).
		Select("COALESCE(MAX(waitlist_seq), 0)").
		Where("event_id = ? AND state = ?", eventID, participation.StateWaitlisted).
		Scan(&max).Error
	if err != nil {
		r.log.Error("failed to allocate waitlist sequence", "event_id", eventID, "error", err)
		return 0, fmt.Errorf("failed to allocate waitlist sequence: %w", err)
	}
	return max + 1, nil
}

// Participants lists joined user ids ordered by join time
func (r *ParticipationRepository) Participants(eventID uuid.UUID) ([]uuid.UUID, error) {
	return r.listByState(eventID, participation.StateJoined)
}

// Waitlist lists waitlisted user ids in FIFO order
func (r *ParticipationRepository) Waitlist(eventID uuid.UUID) ([]uuid.UUID, error) {
	return r.listByState(eventID, participation.StateWaitlisted)
}

func (r *ParticipationRepository) listByState(eventID uuid.UUID, state participation.State) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&participation.Record{}).
		Where("event_id = ? AND state = ?", eventID, state).
		Order("joined_at ASC, waitlist_seq ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		r.log.Error("failed to list participants", "event_id", eventID, "state", state.String(), "error", err)
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return ids, nil
}

// Interested lists user ids with the interested flag set
func (r *ParticipationRepository) Interested(eventID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&participation.Record{}).
		Where("event_id = ? AND interested = ?", eventID, true).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		r.log.Error("failed to list interested users", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("failed to list interested users: %w", err)
	}
	return ids, nil
}

// Outcome returns the recorded result for an idempotency key, or nil
func (r *ParticipationRepository) Outcome(key string) (*participation.Result, error) {
	var row IdempotencyOutcome
	err := r.db.Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error("failed to look up idempotency outcome", "error", err)
		return nil, fmt.Errorf("failed to look up idempotency outcome: %w", err)
	}

	return &participation.Result{
		EventID:     row.EventID,
		UserID:      row.UserID,
		State:       row.State,
		Interested:  row.Interested,
		JoinedCount: row.JoinedCount,
		Version:     row.Version,
	}, nil
}

// Commit persists a transition in a single transaction: record writes carry
// an optimistic version guard, promotion facts and the idempotency outcome
// land with them or not at all.
func (r *ParticipationRepository) Commit(commit participation.Commit) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, rec := range commit.Records {
			if err := r.saveRecord(tx, rec); err != nil {
				return err
			}
		}

		for _, fact := range commit.Promotions {
			if err := tx.Create(fact).Error; err != nil {
				return fmt.Errorf("failed to persist promotion fact: %w", err)
			}
		}

		if commit.IdempotencyKey != "" && commit.Outcome != nil {
			row := IdempotencyOutcome{
				Key:         commit.IdempotencyKey,
				EventID:     commit.Outcome.EventID,
				UserID:      commit.Outcome.UserID,
				State:       commit.Outcome.State,
				Interested:  commit.Outcome.Interested,
				JoinedCount: commit.Outcome.JoinedCount,
				Version:     commit.Outcome.Version,
			}
			if err := tx.Create(&row).Error; err != nil {
				if isUniqueViolation(err) {
					// The key was recorded by an earlier attempt; the caller
					// already holds the outcome it needs.
					return nil
				}
				return fmt.Errorf("failed to persist idempotency outcome: %w", err)
			}
		}

		return nil
	})
}

// saveRecord creates or updates one ledger record. A record at version 1 has
// never been persisted; anything newer must replace exactly the previous
// version or the write is stale.
func (r *ParticipationRepository) saveRecord(tx *gorm.DB, rec *participation.Record) error {
	if rec.Version == 1 {
		if err := tx.Create(rec).Error; err != nil {
			if isUniqueViolation(err) {
				return participation.ErrVersionConflict
			}
			return fmt.Errorf("failed to create participation record: %w", err)
		}
		return nil
	}

	res := tx.Model(&participation.Record{}).
		Where("event_id = ? AND user_id = ? AND version = ?", rec.EventID, rec.UserID, rec.Version-1).
		Updates(map[string]interface{}{
			"state":        rec.State,
			"interested":   rec.Interested,
			"joined_at":    rec.JoinedAt,
			"waitlist_seq": rec.WaitlistSeq,
			"version":      rec.Version,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update participation record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return participation.ErrVersionConflict
	}
	return nil
}

// isUniqueViolation reports whether the error is a PostgreSQL duplicate key
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}
