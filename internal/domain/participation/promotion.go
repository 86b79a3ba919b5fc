package participation

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/domain/event"
	"github.com/gravadigital/encuentro-api/internal/logger"
)

// PromotionScheduler moves waitlist heads into the joined state whenever
// capacity frees up. It is invoked by the engine after capacity-increasing
// transitions, never directly by clients.
type PromotionScheduler struct {
	ledger Ledger
	now    func() time.Time
	log    *log.Logger
}

// NewPromotionScheduler creates a scheduler over the given ledger
func NewPromotionScheduler(ledger Ledger) *PromotionScheduler {
	return &PromotionScheduler{
		ledger: ledger,
		now:    time.Now,
		log:    logger.Service("promotion_scheduler"),
	}
}

// PromoteIfPossible promotes waitlisted users while slots remain. A single
// cancel frees exactly one slot, so the loop usually runs once; bulk capacity
// increases drain as many heads as fit. Each promotion commits the record and
// its durable Promoted fact atomically.
//
// The caller must hold the event's critical section.
func (s *PromotionScheduler) PromoteIfPossible(ev *event.Event) (int, error) {
	promoted := 0

	for {
		joined, err := s.ledger.JoinedCount(ev.ID)
		if err != nil {
			return promoted, fmt.Errorf("failed to read joined count: %w", err)
		}
		if joined >= ev.MaxAttendees {
			break
		}

		head, err := s.ledger.WaitlistHead(ev.ID)
		if err != nil {
			return promoted, fmt.Errorf("failed to read waitlist head: %w", err)
		}
		if head == nil {
			break
		}

		head.State = StateJoined
		head.WaitlistSeq = 0
		head.Version++

		fact := &Promotion{
			ID:         uuid.New(),
			EventID:    head.EventID,
			UserID:     head.UserID,
			OccurredAt: s.now(),
		}

		if err := s.ledger.Commit(Commit{
			Records:    []*Record{head},
			Promotions: []*Promotion{fact},
		}); err != nil {
			return promoted, fmt.Errorf("failed to commit promotion: %w", err)
		}

		s.log.Info("promoted waitlisted user",
			"event_id", ev.ID, "user_id", head.UserID, "joined_count", joined+1)
		promoted++
	}

	return promoted, nil
}
