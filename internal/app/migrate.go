package app

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"

	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/storage/gormstore"
	"bilancio/internal/storage/sqlite"
)

// MigrationResult describes the schema state after Migrate.
type MigrationResult struct {
	Backend string
	Version uint
	Dirty   bool
}

// Migrate brings the configured backend's schema up to date without starting
// anything else. The memory backend has no schema.
func Migrate(ctx context.Context, cfg *config.Config, logger *log.Logger) (MigrationResult, error) {
	res := MigrationResult{Backend: cfg.DataBackend}

	switch cfg.DataBackend {
	case config.BackendSQLite:
		if err := sqlite.RunMigrations(cfg.SQLiteDBPath); err != nil {
			return res, err
		}
		version, dirty, err := sqlite.SchemaVersion(cfg.SQLiteDBPath)
		if err != nil {
			return res, err
		}
		res.Version, res.Dirty = version, dirty
	case config.BackendPostgres:
		store, err := gormstore.Open(postgres.Open, cfg.DatabaseURL)
		if err != nil {
			return res, err
		}
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			return res, err
		}
	case config.BackendMemory:
	default:
		return res, fmt.Errorf("unsupported backend: %s", cfg.DataBackend)
	}

	if logger != nil {
		logger.WithComponent(log.ComponentStorage).Info("Migrations applied",
			log.FieldBackend, res.Backend,
			"version", res.Version,
			"dirty", res.Dirty)
	}
	return res, nil
}
