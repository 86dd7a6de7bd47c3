// Package storage opens the repository backend selected by STORAGE_DRIVER.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/taskflow/internal/config"
	pgInfra "github.com/fastygo/taskflow/internal/infrastructure/postgres"
	"github.com/fastygo/taskflow/repository"
	"github.com/fastygo/taskflow/repository/postgres"
	"github.com/fastygo/taskflow/repository/sqlite"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend bundles the repositories of one store.
type Backend struct {
	Driver   string
	Users    repository.UserRepository
	Tasks    repository.TaskRepository
	Activity repository.ActivityRepository
	Pinger   Pinger

	close func()
}

func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}

// Open connects to the configured store. Postgres migrations run first when
// enabled; the SQLite schema is applied on open.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Backend{
			Driver:   config.DriverPostgres,
			Users:    postgres.NewUserRepository(pool),
			Tasks:    postgres.NewTaskRepository(pool),
			Activity: postgres.NewActivityRepository(pool),
			Pinger:   pool,
			close:    func() { pgInfra.Close(pool, logger) },
		}, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("opened sqlite store", zap.String("path", cfg.Storage.SQLitePath))
		return &Backend{
			Driver:   config.DriverSQLite,
			Users:    sqlite.NewUserRepository(store),
			Tasks:    sqlite.NewTaskRepository(store),
			Activity: sqlite.NewActivityRepository(store),
			Pinger:   store,
			close: func() {
				if err := store.Close(); err != nil {
					logger.Warn("sqlite close failed", zap.Error(err))
				}
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
