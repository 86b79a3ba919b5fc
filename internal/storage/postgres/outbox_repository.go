package postgres

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/logger"
)

// OutboxRepository implements the promotion outbox store using GORM. Facts
// are written by the participation ledger inside transition transactions;
// this repository only reads them back and tracks delivery state.
type OutboxRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{
		db:  db,
		log: logger.Repository("outbox"),
	}
}

// NextPending returns undispatched promotion facts, oldest first
func (r *OutboxRepository) NextPending(limit int) ([]*participation.Promotion, error) {
	var facts []*participation.Promotion
	err := r.db.Where("dispatched_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&facts).Error
	if err != nil {
		r.log.Error("failed to read pending promotions", "error", err)
		return nil, fmt.Errorf("failed to read pending promotions: %w", err)
	}
	return facts, nil
}

// MarkDispatched flags a promotion fact as delivered
func (r *OutboxRepository) MarkDispatched(id uuid.UUID) error {
	err := r.db.Model(&participation.Promotion{}).
		Where("id = ?", id).
		Update("dispatched_at", time.Now()).Error
	if err != nil {
		r.log.Error("failed to mark promotion dispatched", "promotion_id", id, "error", err)
		return fmt.Errorf("failed to mark promotion dispatched: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt
func (r *OutboxRepository) MarkFailed(id uuid.UUID) error {
	err := r.db.Model(&participation.Promotion{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		r.log.Error("failed to record promotion delivery failure", "promotion_id", id, "error", err)
		return fmt.Errorf("failed to record promotion delivery failure: %w", err)
	}
	return nil
}
