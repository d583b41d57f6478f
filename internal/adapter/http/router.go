package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/tillclose/internal/adapter/http/handler"
	"github.com/iho/tillclose/internal/adapter/http/middleware"
	"github.com/iho/tillclose/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	SettlementHandler *handler.SettlementHandler
	HealthHandler     *handler.HealthHandler
	Logger            zerolog.Logger

	// Optional
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Authenticator    *middleware.Authenticator
	MetricsHandler   http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Authenticator != nil {
			r.Use(cfg.Authenticator.Require)
			r.Use(middleware.RequireMutator)
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Get("/denominations", cfg.SettlementHandler.Denominations)

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", cfg.SettlementHandler.List)
			r.Post("/", cfg.SettlementHandler.Begin)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", cfg.SettlementHandler.Get)
				r.Patch("/", cfg.SettlementHandler.UpdateNotes)
				r.Put("/denominations/{label}", cfg.SettlementHandler.UpdateDenomination)
				r.Post("/adjustments", cfg.SettlementHandler.AddAdjustment)
				r.Delete("/adjustments/{adjustmentID}", cfg.SettlementHandler.RemoveAdjustment)
				r.Get("/status", cfg.SettlementHandler.Status)
				r.Get("/tenders", cfg.SettlementHandler.Tenders)
				r.Post("/complete", cfg.SettlementHandler.Complete)
			})
		})
	})

	return r
}
