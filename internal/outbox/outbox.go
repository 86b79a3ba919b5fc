// Package outbox delivers durable promotion facts to the notifier
// collaborator. Facts are written by the participation ledger in the same
// transaction as the promoted record; the dispatcher picks them up
// asynchronously, so the core's transactional boundary never extends into
// external delivery.
package outbox

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/logger"
)

// Store is the durable queue of promotion facts
type Store interface {
	// NextPending returns undispatched facts, oldest first.
	NextPending(limit int) ([]*participation.Promotion, error)

	// MarkDispatched flags a fact as delivered.
	MarkDispatched(id uuid.UUID) error

	// MarkFailed records a failed delivery attempt.
	MarkFailed(id uuid.UUID) error
}

// Notifier receives Promoted events. Delivery and retry semantics beyond the
// dispatcher's own attempts are the collaborator's concern.
type Notifier interface {
	NotifyPromoted(ctx context.Context, fact *participation.Promotion) error
}

// Dispatcher polls the store and pushes pending facts to the notifier
type Dispatcher struct {
	store        Store
	notifier     Notifier
	pollInterval time.Duration
	maxAttempts  int
	batchSize    int
	log          *log.Logger
}

// NewDispatcher creates a dispatcher with the given polling interval and
// per-fact attempt budget
func NewDispatcher(store Store, notifier Notifier, pollInterval time.Duration, maxAttempts int) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 8
	}

	return &Dispatcher{
		store:        store,
		notifier:     notifier,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		batchSize:    50,
		log:          logger.Outbox(),
	}
}

// Run polls until the context is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("Starting promotion outbox dispatcher",
		"poll_interval", d.pollInterval, "max_attempts", d.maxAttempts)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Stopping promotion outbox dispatcher")
			return
		case <-ticker.C:
			if err := d.DispatchPending(ctx); err != nil {
				d.log.Error("Outbox dispatch pass failed", "error", err)
			}
		}
	}
}

// DispatchPending delivers one batch of pending facts. Exposed separately so
// tests and shutdown paths can drain synchronously.
func (d *Dispatcher) DispatchPending(ctx context.Context) error {
	pending, err := d.store.NextPending(d.batchSize)
	if err != nil {
		return err
	}

	for _, fact := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if fact.Attempts >= d.maxAttempts {
			// Attempt budget exhausted. Delivery guarantees beyond retries
			// are out of scope, so the fact is dropped from the queue.
			d.log.Error("Dropping promotion notification after repeated failures",
				"promotion_id", fact.ID, "event_id", fact.EventID,
				"user_id", fact.UserID, "attempts", fact.Attempts)
			if err := d.store.MarkDispatched(fact.ID); err != nil {
				return err
			}
			continue
		}

		if err := d.notifier.NotifyPromoted(ctx, fact); err != nil {
			d.log.Warn("Promotion notification failed",
				"promotion_id", fact.ID, "event_id", fact.EventID,
				"user_id", fact.UserID, "attempts", fact.Attempts+1, "error", err)
			if err := d.store.MarkFailed(fact.ID); err != nil {
				return err
			}
			continue
		}

		if err := d.store.MarkDispatched(fact.ID); err != nil {
			return err
		}

		d.log.Debug("Promotion notification delivered",
			"promotion_id", fact.ID, "event_id", fact.EventID, "user_id", fact.UserID)
	}

	return nil
}
