//go:build integration
// +build integration

package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/encuentro-api/internal/config"
	"github.com/gravadigital/encuentro-api/internal/storage"
	"github.com/gravadigital/encuentro-api/internal/storage/postgres"
)

// Integration tests that require a real PostgreSQL database
// Run with: go test -tags=integration

func loadTestConfig() *config.Config {
	cfg := config.Load()
	if testDB := os.Getenv("TEST_DB_NAME"); testDB != "" {
		cfg.DB.Name = testDB
	}
	return cfg
}

func TestDatabaseConnection(t *testing.T) {
	cfg := loadTestConfig()

	db, err := postgres.Connect(cfg)
	assert.NoError(t, err, "Should be able to connect to test database")

	if err == nil {
		sqlDB, err := db.DB()
		assert.NoError(t, err)

		err = sqlDB.Ping()
		assert.NoError(t, err, "Should be able to ping the database")

		sqlDB.Close()
	}
}

func TestDatabaseMigration(t *testing.T) {
	cfg := loadTestConfig()

	db, err := postgres.Connect(cfg)
	assert.NoError(t, err, "Should be able to connect to test database")

	if err == nil {
		err = postgres.AutoMigrate(db)
		assert.NoError(t, err, "Should be able to run migrations")

		sqlDB, _ := db.DB()
		sqlDB.Close()
	}
}

func TestPostgresBackendHealth(t *testing.T) {
	cfg := loadTestConfig()

	backend, err := storage.NewBackend(storage.StorageTypePostgres, cfg)
	require.NoError(t, err, "Should be able to build the postgres backend")
	defer backend.Close()

	assert.NoError(t, backend.Health())

	// The ledger answers batch queries even with no data.
	counts, err := backend.Ledger().JoinedCounts(nil)
	assert.NoError(t, err)
	assert.NotNil(t, counts)
}
