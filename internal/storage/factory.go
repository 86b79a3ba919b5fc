package storage

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/config"
	"github.com/gravadigital/encuentro-api/internal/domain/event"
	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/outbox"
	"github.com/gravadigital/encuentro-api/internal/storage/memory"
	"github.com/gravadigital/encuentro-api/internal/storage/postgres"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	// StorageTypePostgres represents PostgreSQL storage
	StorageTypePostgres StorageType = "postgres"

	// StorageTypeMemory represents in-memory storage for local development
	StorageTypeMemory StorageType = "memory"
)

// EventStore is the full event catalog surface used by handlers. It is a
// superset of participation.EventCatalog.
type EventStore interface {
	Create(ev *event.Event) error
	GetByID(eventID uuid.UUID) (*event.Event, error)
	GetAll() ([]*event.Event, error)
	UpdateBounds(eventID uuid.UUID, minAttendees, maxAttendees int) error
}

// Backend bundles the stores one storage type provides
type Backend interface {
	Events() EventStore
	Ledger() participation.Ledger
	Outbox() outbox.Store
	Health() error
	Close() error
}

// NewBackend creates a storage backend of the configured type
func NewBackend(storageType StorageType, cfg *config.Config) (Backend, error) {
	switch storageType {
	case StorageTypePostgres:
		container, err := postgres.NewContainer(cfg)
		if err != nil {
			return nil, err
		}
		return &pgBackend{container: container}, nil
	case StorageTypeMemory:
		return &memoryBackend{store: memory.NewStore()}, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ValidateStorageType validates if a storage type is supported
func ValidateStorageType(storageType string) (StorageType, error) {
	st := StorageType(storageType)
	switch st {
	case StorageTypePostgres, StorageTypeMemory:
		return st, nil
	default:
		return "", fmt.Errorf("unsupported storage type: %s (supported: postgres, memory)", storageType)
	}
}

type pgBackend struct {
	container *postgres.Container
}

func (b *pgBackend) Events() EventStore           { return b.container.Events() }
func (b *pgBackend) Ledger() participation.Ledger { return b.container.Participations() }
func (b *pgBackend) Outbox() outbox.Store         { return b.container.Outbox() }
func (b *pgBackend) Health() error                { return b.container.Health() }
func (b *pgBackend) Close() error                 { return b.container.Close() }

type memoryBackend struct {
	store *memory.Store
}

func (b *memoryBackend) Events() EventStore {
	return &memoryEvents{store: b.store}
}
func (b *memoryBackend) Ledger() participation.Ledger { return b.store }
func (b *memoryBackend) Outbox() outbox.Store         { return b.store }
func (b *memoryBackend) Health() error                { return nil }
func (b *memoryBackend) Close() error                 { return nil }

// memoryEvents adapts the memory store's event methods to EventStore
type memoryEvents struct {
	store *memory.Store
}

func (e *memoryEvents) Create(ev *event.Event) error { return e.store.CreateEvent(ev) }
func (e *memoryEvents) GetByID(eventID uuid.UUID) (*event.Event, error) {
	return e.store.GetByID(eventID)
}
func (e *memoryEvents) GetAll() ([]*event.Event, error) { return e.store.GetAll() }
func (e *memoryEvents) UpdateBounds(eventID uuid.UUID, minAttendees, maxAttendees int) error {
	return e.store.UpdateBounds(eventID, minAttendees, maxAttendees)
}
