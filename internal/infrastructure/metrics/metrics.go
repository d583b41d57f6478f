package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Settlement metrics
	SettlementsBegun     prometheus.Counter
	SettlementsResumed   *prometheus.CounterVec
	SettlementsCompleted *prometheus.CounterVec
	CompletionFailures   *prometheus.CounterVec
	CompletionDuration   prometheus.Histogram
	SettlementVariance   prometheus.Histogram
	OpenWorkflows        prometheus.Gauge

	// Adjustment metrics
	AdjustmentsRecorded *prometheus.CounterVec
	AdjustmentsRemoved  prometheus.Counter

	// Draft store metrics
	DraftSaves  *prometheus.CounterVec
	DraftErrors *prometheus.CounterVec

	// Outbox metrics
	EventsPublished     *prometheus.CounterVec
	EventPublishErrors  *prometheus.CounterVec
	OutboxPollDurations prometheus.Histogram

	// Database metrics
	DBRetries *prometheus.CounterVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Settlement metrics
		SettlementsBegun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tillclose_settlements_begun_total",
			Help: "Total number of settlement workflows seeded from a session",
		}),
		SettlementsResumed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_settlements_resumed_total",
				Help: "Total number of settlement workflows resumed by source",
			},
			[]string{"source"},
		),
		SettlementsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_settlements_completed_total",
				Help: "Total number of completed settlements by variance",
			},
			[]string{"variance"},
		),
		CompletionFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_completion_failures_total",
				Help: "Total number of rejected or failed completions by reason",
			},
			[]string{"reason"},
		),
		CompletionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tillclose_completion_duration_seconds",
			Help:    "Duration of settlement completion writes",
			Buckets: prometheus.DefBuckets,
		}),
		SettlementVariance: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tillclose_settlement_variance_abs",
			Help:    "Absolute cash variance of completed settlements",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
		OpenWorkflows: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tillclose_open_workflows",
			Help: "Current number of open settlement workflows",
		}),

		// Adjustment metrics
		AdjustmentsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_adjustments_recorded_total",
				Help: "Total number of adjustments recorded by type",
			},
			[]string{"type"},
		),
		AdjustmentsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tillclose_adjustments_removed_total",
			Help: "Total number of adjustments removed",
		}),

		// Draft store metrics
		DraftSaves: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_draft_operations_total",
				Help: "Total draft store operations",
			},
			[]string{"operation"},
		),
		DraftErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_draft_errors_total",
				Help: "Total draft store errors",
			},
			[]string{"operation"},
		),

		// Outbox metrics
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_events_published_total",
				Help: "Total outbox events published by type",
			},
			[]string{"event_type"},
		),
		EventPublishErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_event_publish_errors_total",
				Help: "Total outbox publish errors by type",
			},
			[]string{"event_type"},
		),
		OutboxPollDurations: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tillclose_outbox_poll_duration_seconds",
			Help:    "Duration of outbox poll cycles",
			Buckets: prometheus.DefBuckets,
		}),

		// Database metrics
		DBRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_db_retries_total",
				Help: "Total retried database operations",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"path"},
		),

		// Audit metrics
		AuditLogsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillclose_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),
	}
}
