package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/usecase"
)

// InMemorySettlementRepository is an in-memory SettlementRepository.
type InMemorySettlementRepository struct {
	mu          sync.RWMutex
	settlements map[string]*domain.Settlement

	CreateFunc func(ctx context.Context, tx usecase.Transaction, settlement *domain.Settlement) error
}

func NewInMemorySettlementRepository() *InMemorySettlementRepository {
	return &InMemorySettlementRepository{
		settlements: make(map[string]*domain.Settlement),
	}
}

func (m *InMemorySettlementRepository) Create(ctx context.Context, tx usecase.Transaction, settlement *domain.Settlement) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, tx, settlement); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settlements[settlement.SessionID]; ok {
		return domain.ErrSettlementAlreadyPersisted
	}
	s := settlement.Clone()
	m.settlements[settlement.SessionID] = &s
	return nil
}

// Put stores a settlement directly, bypassing CreateFunc.
func (m *InMemorySettlementRepository) Put(settlement domain.Settlement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := settlement.Clone()
	m.settlements[settlement.SessionID] = &s
}

func (m *InMemorySettlementRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settlements[sessionID]; ok {
		c := s.Clone()
		return &c, nil
	}
	return nil, domain.ErrSettlementNotFound
}

func (m *InMemorySettlementRepository) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.settlements)), nil
}

func (m *InMemorySettlementRepository) List(ctx context.Context, limit, offset int) ([]*domain.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*domain.Settlement, 0, len(m.settlements))
	for _, s := range m.settlements {
		c := s.Clone()
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].EndTime.After(*all[j].EndTime)
	})

	if offset >= len(all) {
		return []*domain.Settlement{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *InMemorySettlementRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.settlements)
}

// StubSessionSource serves fixed sessions.
type StubSessionSource struct {
	Sessions     map[string]*domain.Session
	Transactions map[string][]domain.TransactionSummary
	Refunds      map[string][]domain.Refund
}

func NewStubSessionSource() *StubSessionSource {
	return &StubSessionSource{
		Sessions:     make(map[string]*domain.Session),
		Transactions: make(map[string][]domain.TransactionSummary),
		Refunds:      make(map[string][]domain.Refund),
	}
}

func (m *StubSessionSource) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if s, ok := m.Sessions[sessionID]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *StubSessionSource) ListTransactions(ctx context.Context, sessionID string) ([]domain.TransactionSummary, error) {
	return m.Transactions[sessionID], nil
}

func (m *StubSessionSource) ListRefunds(ctx context.Context, sessionID string) ([]domain.Refund, error) {
	return m.Refunds[sessionID], nil
}

// InMemoryOutboxRepository is an in-memory OutboxRepository.
type InMemoryOutboxRepository struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent
}

func NewInMemoryOutboxRepository() *InMemoryOutboxRepository {
	return &InMemoryOutboxRepository{}
}

func (m *InMemoryOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *InMemoryOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *InMemoryOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("event %s not found", id)
}

func (m *InMemoryOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *InMemoryOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

func (m *InMemoryOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

// InMemoryAuditRepository records audit logs.
type InMemoryAuditRepository struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func NewInMemoryAuditRepository() *InMemoryAuditRepository {
	return &InMemoryAuditRepository{}
}

func (m *InMemoryAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *InMemoryAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return m.Create(ctx, log)
}

func (m *InMemoryAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditLog
	for _, l := range m.logs {
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.ResourceID != "" && l.ResourceID != filter.ResourceID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *InMemoryAuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	return m.List(ctx, domain.AuditFilter{ResourceType: resourceType, ResourceID: resourceID})
}

// InMemoryDraftStore is an in-memory DraftStore.
type InMemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string]domain.Settlement
}

func NewInMemoryDraftStore() *InMemoryDraftStore {
	return &InMemoryDraftStore{drafts: make(map[string]domain.Settlement)}
}

func (m *InMemoryDraftStore) Save(ctx context.Context, settlement domain.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[settlement.SessionID] = settlement.Clone()
	return nil
}

func (m *InMemoryDraftStore) Load(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.drafts[sessionID]
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	c := s.Clone()
	return &c, nil
}

func (m *InMemoryDraftStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
	return nil
}

// NoopTransactionManager hands out transactions that do nothing.
type NoopTransactionManager struct {
	mu        sync.Mutex
	Commits   int
	Rollbacks int
}

func (m *NoopTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	return &noopTransaction{mgr: m}, nil
}

type noopTransaction struct {
	mgr  *NoopTransactionManager
	done bool
}

func (t *noopTransaction) Commit(ctx context.Context) error {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	t.done = true
	t.mgr.Commits++
	return nil
}

func (t *noopTransaction) Rollback(ctx context.Context) error {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	if !t.done {
		t.mgr.Rollbacks++
	}
	t.done = true
	return nil
}

// SequentialIDGenerator generates predictable ids.
type SequentialIDGenerator struct {
	Prefix  string
	counter int
	mu      sync.Mutex
}

func (m *SequentialIDGenerator) Generate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	prefix := m.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, m.counter)
}
