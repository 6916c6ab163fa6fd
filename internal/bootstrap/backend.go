package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/config"
	"github.com/spec-kit/ticket-workflow/internal/persistence"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	"github.com/spec-kit/ticket-workflow/internal/repository/memory"
)

// Backend is the storage wiring shared by the server and the admin CLI.
type Backend struct {
	Postgres      *persistence.Postgres
	Redis         *persistence.Redis
	Tickets       repository.TicketRepository
	History       repository.TicketHistoryRepository
	Rules         repository.TransitionRuleRepository
	Catalog       repository.CatalogRepository
	Notifications repository.NotificationRepository
	Tx            repository.TxManager
	// Memory is set when no database is configured.
	Memory *memory.Store
}

// OpenBackend connects to postgres when a DSN is configured and falls back to
// an in-memory store, optionally seeded from cfg.Workflow.SeedFile.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*Backend, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redis := persistence.NewRedis(cfg.Redis, logger)

	b := &Backend{Postgres: pg, Redis: redis}
	if pg.Configured() {
		if migrate {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				b.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool := pg.PoolHandle()
		b.Tickets = repository.NewTicketRepository(pool)
		b.History = repository.NewTicketHistoryRepository(pool)
		b.Rules = repository.NewTransitionRuleRepository(pool)
		b.Catalog = repository.NewCatalogRepository(pool)
		b.Notifications = repository.NewNotificationRepository(pool)
		b.Tx = repository.NewTxManager(pool)
	} else {
		store := memory.NewStore()
		if cfg.Workflow.SeedFile != "" {
			store, err = memory.LoadSeedFile(cfg.Workflow.SeedFile)
			if err != nil {
				b.Close()
				return nil, fmt.Errorf("load seed: %w", err)
			}
			logger.Info("in-memory store seeded", zap.String("file", cfg.Workflow.SeedFile))
		}
		b.Memory = store
		b.Tickets = store.Tickets()
		b.History = store.History()
		b.Rules = store.Rules()
		b.Catalog = store.Catalog()
		b.Notifications = store.Notifications()
		b.Tx = store
	}

	b.Catalog = repository.NewCachedCatalogRepository(b.Catalog, redis.ClientHandle(), cfg.Redis.CatalogCacheTTL, logger)
	return b, nil
}

// Close releases connections.
func (b *Backend) Close() {
	if b == nil {
		return
	}
	b.Redis.Close()
	b.Postgres.Close()
}
