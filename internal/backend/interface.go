package backend

import (
	"context"
	"slices"

	"bilancio/internal/config"
	"bilancio/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the record store and its cleanup function
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = config.BackendSQLite
	PostgresBackend BackendType = config.BackendPostgres
	MemoryBackend   BackendType = config.BackendMemory
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	return slices.Contains(GetBackendTypes(), bt)
}
