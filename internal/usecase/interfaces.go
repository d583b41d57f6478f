package usecase

import (
	"context"
	"time"

	"github.com/iho/tillclose/internal/domain"
)

// SettlementRepository defines data access for completed settlements.
type SettlementRepository interface {
	// Create persists a completed settlement with its adjustments. It returns
	// domain.ErrSettlementAlreadyPersisted when the session already has one.
	Create(ctx context.Context, tx Transaction, settlement *domain.Settlement) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Settlement, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Settlement, error)
	Count(ctx context.Context) (int64, error)
}

// SessionSource reads the POS session data a settlement is seeded from.
type SessionSource interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListTransactions(ctx context.Context, sessionID string) ([]domain.TransactionSummary, error)
	ListRefunds(ctx context.Context, sessionID string) ([]domain.Refund, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// DraftStore caches snapshots of open settlement workflows so they survive
// a restart.
type DraftStore interface {
	Save(ctx context.Context, settlement domain.Settlement) error
	// Load returns domain.ErrSettlementNotFound when no draft exists.
	Load(ctx context.Context, sessionID string) (*domain.Settlement, error)
	Delete(ctx context.Context, sessionID string) error
}

// Retrier retries an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
