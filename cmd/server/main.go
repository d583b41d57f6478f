package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/tillclose/internal/adapter/http"
	"github.com/iho/tillclose/internal/adapter/http/handler"
	"github.com/iho/tillclose/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/tillclose/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/tillclose/internal/adapter/repository/redis"
	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/infrastructure/auth"
	"github.com/iho/tillclose/internal/infrastructure/config"
	"github.com/iho/tillclose/internal/infrastructure/denominations"
	"github.com/iho/tillclose/internal/infrastructure/eventpublisher"
	"github.com/iho/tillclose/internal/infrastructure/logger"
	"github.com/iho/tillclose/internal/infrastructure/metrics"
	"github.com/iho/tillclose/internal/infrastructure/redis"
	"github.com/iho/tillclose/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	m := metrics.New()

	settlementCfg, err := settlementConfig(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer st.close()
	log.Info().Str("driver", cfg.StoreDriver).Msg("store ready")

	var redisClient *goredis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	}

	var (
		drafts           usecase.DraftStore
		idempotencyStore usecase.IdempotencyStore
	)
	if redisClient != nil {
		drafts = redisRepo.NewDraftStore(redisClient, cfg.DraftTTL)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}

	settlementUC := usecase.NewSettlementUseCase(
		st.txManager,
		st.settlements,
		st.sessions,
		st.outbox,
		st.audit,
		drafts,
		st.retrier,
		postgresRepo.NewULIDGenerator(),
		settlementCfg,
		log,
		m,
	)

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: st.outbox,
		Publisher:  newSink(cfg, redisClient, log),
		Logger:     &log,
		Metrics:    m,
		BatchSize:  cfg.PublisherBatchSize,
		Interval:   cfg.PublisherInterval,
		Retention:  cfg.PublisherRetention,
	})

	deps := []handler.Dependency{st.health}
	if redisClient != nil {
		deps = append(deps, handler.Dependency{
			Name:   "redis",
			Pinger: handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		})
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)

	routerCfg := httpAdapter.RouterConfig{
		SettlementHandler: handler.NewSettlementHandler(settlementUC),
		HealthHandler:     handler.NewHealthHandler(deps...),
		Logger:            log,
		IdempotencyStore:  idempotencyStore,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		RateLimiter:       rateLimiter,
	}
	if cfg.AuthEnabled {
		routerCfg.Authenticator = middleware.NewAuthenticator(auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration), m)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	go func() {
		if err := publisher.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()
	go cleanupLimiters(workerCtx, rateLimiter, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("policy", string(settlementCfg.Policy)).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// settlementConfig resolves the denomination set and completion policy.
func settlementConfig(cfg *config.Config) (usecase.SettlementConfig, error) {
	set, err := denominations.Load(cfg.DenominationsFile)
	if err != nil {
		return usecase.SettlementConfig{}, fmt.Errorf("load denominations: %w", err)
	}

	policy, err := domain.ParseCompletionPolicy(cfg.CompletionPolicy)
	if err != nil {
		return usecase.SettlementConfig{}, err
	}

	return usecase.SettlementConfig{Denominations: set, Policy: policy}, nil
}

// newSink picks where outbox events are delivered.
func newSink(cfg *config.Config, client *goredis.Client, log zerolog.Logger) eventpublisher.Publisher {
	if cfg.PublisherSink == config.PublisherSinkRedis && client != nil {
		return eventpublisher.NewRedisStreamPublisher(client, cfg.PublisherStream, cfg.PublisherMaxLen)
	}
	return eventpublisher.NewLogPublisher(log)
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := rl.CleanupLimiters(time.Hour); removed > 0 {
				log.Debug().Int("removed", removed).Msg("rate limiters pruned")
			}
		}
	}
}
