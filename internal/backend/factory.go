package backend

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"

	"bilancio/internal/log"
	"bilancio/internal/storage/gormstore"
	"bilancio/internal/storage/memory"
	"bilancio/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(config)
	case MemoryBackend:
		result = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := result.Store.Ping(ctx); err != nil {
		_ = result.Cleanup()
		return nil, fmt.Errorf("%s backend not reachable: %w", config.Type, err)
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(config Config) (*BackendResult, error) {
	store, err := gormstore.Open(postgres.Open, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
	}

	f.logger.Info("Initialized postgres backend")

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	store := memory.NewStore()

	f.logger.Warn("Initialized memory backend, records are lost on restart")

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}
}
