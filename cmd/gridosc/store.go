package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nerrad567/gridosc/internal/devconfig"
	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/database"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
	"github.com/nerrad567/gridosc/migrations"
)

// openStore returns the configured per-device store and a func releasing it.
// The database handle is nil for the file backend.
func openStore(ctx context.Context, cfg config.StoreConfig, log *logging.Logger) (devconfig.Store, *database.DB, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		if !checkHealth(ctx, "database", db, log) {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, nil, nil, fmt.Errorf("database %s failed its health check", db.Path())
		}
		log.Info("config store ready", "backend", cfg.Backend, "path", db.Path())
		return devconfig.NewSQLiteStore(db), db, func() {
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		}, nil

	default:
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, nil, nil, fmt.Errorf("creating config dir: %w", err)
		}
		log.Info("config store ready", "backend", config.BackendFile, "dir", cfg.Dir)
		return devconfig.NewFileStore(cfg.Dir), nil, func() {}, nil
	}
}
