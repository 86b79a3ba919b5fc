package postgres

import (
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/encuentro-api/internal/config"
	"github.com/gravadigital/encuentro-api/internal/logger"
)

// Container wires the PostgreSQL repositories over one connection
type Container struct {
	db                *gorm.DB
	log               *log.Logger
	eventRepo         *EventRepository
	participationRepo *ParticipationRepository
	outboxRepo        *OutboxRepository
}

// NewContainer connects, migrates and initializes all repositories
func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.Repository("postgres_container")
	log.Info("Initializing PostgreSQL repository container...")

	db, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := NewContainerWithDB(db)
	if err := container.Health(); err != nil {
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("PostgreSQL repository container initialized")
	return container, nil
}

// NewContainerWithDB creates a container with an existing database connection
func NewContainerWithDB(db *gorm.DB) *Container {
	return &Container{
		db:                db,
		log:               logger.Repository("postgres_container"),
		eventRepo:         NewEventRepository(db),
		participationRepo: NewParticipationRepository(db),
		outboxRepo:        NewOutboxRepository(db),
	}
}

// Events returns the event repository
func (c *Container) Events() *EventRepository {
	return c.eventRepo
}

// Participations returns the participation ledger
func (c *Container) Participations() *ParticipationRepository {
	return c.participationRepo
}

// Outbox returns the promotion outbox repository
func (c *Container) Outbox() *OutboxRepository {
	return c.outboxRepo
}

// Health checks the database connection and core tables
func (c *Container) Health() error {
	if err := HealthCheck(c.db); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	for _, table := range []string{"events", "participations", "promotion_outbox", "idempotency_outcomes"} {
		var count int64
		if err := c.db.Table(table).Count(&count).Error; err != nil {
			c.log.Error("Repository health check failed", "table", table, "error", err)
			return fmt.Errorf("table %s health check failed: %w", table, err)
		}
	}

	return nil
}

// Close shuts down the container and closes the database connection
func (c *Container) Close() error {
	c.log.Info("Closing PostgreSQL repository container...")

	if c.db == nil {
		return nil
	}

	if err := Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	c.db = nil
	return nil
}
