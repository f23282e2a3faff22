package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/auth"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/credentials"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/service"
	appsync "github.com/eshaffer321/marketplace-order-sync/internal/application/sync"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/config"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/lock"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/statestore"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// App holds the wired components shared by every command
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Store        *storage.Storage
	Client       marketplace.Client
	Locker       lock.Locker
	States       statestore.Store
	Credentials  *credentials.Manager
	Orchestrator *appsync.Orchestrator
	SyncService  *service.SyncService
	OAuth        *auth.Service

	redis *redis.Client
}

// NewApp opens storage and wires the application. With redis disabled the
// locker and OAuth state store are process-local.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Client: NewMarketplaceClient(cfg.Marketplace, logger),
	}

	if cfg.Redis.Enabled {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		app.Locker = lock.NewRedis(app.redis, lock.RedisConfig{}, logger.With("system", "lock"))
		app.States = statestore.NewRedis(app.redis, cfg.Sync.StateTTL, "")
	} else {
		app.Locker = lock.NewMemory()
		app.States = statestore.NewMemory(cfg.Sync.StateTTL)
	}

	app.Credentials = credentials.NewManager(store, app.Client, app.Locker, logger.With("system", "credentials"), credentials.Config{
		RefreshAhead: cfg.Sync.RefreshAhead,
	})
	app.Orchestrator = appsync.NewOrchestrator(app.Client, app.Credentials, store, logger.With("system", "sync"))
	app.SyncService = service.NewSyncService(app.Orchestrator, app.Locker, logger.With("system", "jobs"), service.Config{
		DefaultWindowDays: cfg.Sync.DefaultWindowDays,
		DefaultPageSize:   cfg.Marketplace.PageSize,
	})
	app.OAuth = auth.NewService(app.Client, app.States, app.Credentials, cfg.Marketplace.Scopes, logger.With("system", "oauth"))

	logger.Info("application wired",
		slog.String("marketplace", app.Client.Name()),
		slog.String("mode", cfg.Marketplace.Mode),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.String("database", cfg.Storage.DatabasePath),
	)

	return app, nil
}

// Close releases storage and the redis connection
func (a *App) Close() error {
	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
