package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/tillclose/internal/adapter/http/handler"
	postgresRepo "github.com/iho/tillclose/internal/adapter/repository/postgres"
	sqliteRepo "github.com/iho/tillclose/internal/adapter/repository/sqlite"
	"github.com/iho/tillclose/internal/infrastructure/config"
	"github.com/iho/tillclose/internal/infrastructure/metrics"
	"github.com/iho/tillclose/internal/infrastructure/postgres"
	"github.com/iho/tillclose/internal/usecase"
)

// store bundles the repositories of one storage driver.
type store struct {
	txManager   usecase.TransactionManager
	settlements usecase.SettlementRepository
	sessions    usecase.SessionSource
	outbox      usecase.OutboxRepository
	audit       usecase.AuditRepository
	retrier     usecase.Retrier
	health      handler.Dependency
	close       func()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		return openSQLite(ctx, cfg.SQLiteDSN, log, m)
	case config.StoreDriverPostgres:
		return openPostgres(ctx, cfg, log, m)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*store, error) {
	if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &store{
		txManager:   postgresRepo.NewTxManager(pool),
		settlements: postgresRepo.NewSettlementRepository(pool),
		sessions:    postgresRepo.NewSessionRepository(pool),
		outbox:      postgresRepo.NewOutboxRepository(pool),
		audit:       postgresRepo.NewAuditRepository(pool),
		retrier:     postgresRepo.NewRetrier(log, m),
		health:      handler.Dependency{Name: "postgres", Pinger: pool},
		close:       pool.Close,
	}, nil
}

func openSQLite(ctx context.Context, dsn string, log zerolog.Logger, m *metrics.Metrics) (*store, error) {
	db, err := sqliteRepo.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return &store{
		txManager:   sqliteRepo.NewTxManager(db),
		settlements: sqliteRepo.NewSettlementRepository(db),
		sessions:    sqliteRepo.NewSessionRepository(db),
		outbox:      sqliteRepo.NewOutboxRepository(db),
		audit:       sqliteRepo.NewAuditRepository(db),
		retrier:     postgresRepo.NewRetrier(log, m).WithClassifier(sqliteRepo.IsRetryable),
		health:      handler.Dependency{Name: "sqlite", Pinger: handler.PingerFunc(db.PingContext)},
		close:       func() { _ = db.Close() },
	}, nil
}
