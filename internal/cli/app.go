package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Spok95/coffee-club/internal/config"
	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
	"github.com/Spok95/coffee-club/internal/domain/users"
	"github.com/Spok95/coffee-club/internal/infra/db"
	"github.com/Spok95/coffee-club/internal/infra/logger"
)

// app: конфигурация и хранилища, общие для всех команд.
type app struct {
	cfg   config.Config
	log   *slog.Logger
	subs  subscriptions.Store
	staff users.Store
	close func()
}

// openApp читает конфиг, подключает выбранное хранилище и накатывает миграции.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.App.Env)
	a := &app{cfg: cfg, log: log}

	switch cfg.Storage.Driver {
	case "sqlite":
		sqlDB, err := db.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, sqlDB, db.DialectSQLite, log); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.subs = subscriptions.NewSQLiteRepo(sqlDB)
		a.staff = users.NewSQLiteRepo(sqlDB)
		a.close = func() { _ = sqlDB.Close() }
	default:
		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if err := db.MigratePool(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.subs = subscriptions.NewRepo(pool)
		a.staff = users.NewRepo(pool)
		a.close = pool.Close
	}
	log.Info("storage ready", "driver", cfg.Storage.Driver)
	return a, nil
}

func (a *app) Close() {
	if a.close != nil {
		a.close()
	}
}
