package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/infrastructure/metrics"
)

// SettlementConfig holds the settlement rules chosen at startup.
type SettlementConfig struct {
	Denominations domain.DenominationSet
	Policy        domain.CompletionPolicy
}

// SettlementUseCase drives the settlement workflow of POS sessions: it owns
// the open workflows, persists completions and keeps drafts in sync.
type SettlementUseCase struct {
	txManager      TransactionManager
	settlementRepo SettlementRepository
	sessions       SessionSource
	outboxRepo     OutboxRepository
	auditRepo      AuditRepository
	drafts         DraftStore
	retrier        Retrier
	idGen          IDGenerator
	cfg            SettlementConfig
	logger         zerolog.Logger
	metrics        *metrics.Metrics

	open *registry
	now  func() time.Time
}

// NewSettlementUseCase creates a new SettlementUseCase. drafts, retrier,
// auditRepo and metrics may be nil.
func NewSettlementUseCase(
	txManager TransactionManager,
	settlementRepo SettlementRepository,
	sessions SessionSource,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	drafts DraftStore,
	retrier Retrier,
	idGen IDGenerator,
	cfg SettlementConfig,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *SettlementUseCase {
	if cfg.Denominations.Len() == 0 {
		cfg.Denominations = domain.DefaultDenominationSet()
	}
	if cfg.Policy == "" {
		cfg.Policy = domain.DefaultCompletionPolicy
	}

	return &SettlementUseCase{
		txManager:      txManager,
		settlementRepo: settlementRepo,
		sessions:       sessions,
		outboxRepo:     outboxRepo,
		auditRepo:      auditRepo,
		drafts:         drafts,
		retrier:        retrier,
		idGen:          idGen,
		cfg:            cfg,
		logger:         logger.With().Str("component", "settlement").Logger(),
		metrics:        metrics,
		open:           newRegistry(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Denominations returns the configured denomination set.
func (uc *SettlementUseCase) Denominations() domain.DenominationSet {
	return uc.cfg.Denominations
}

// Policy returns the configured completion policy.
func (uc *SettlementUseCase) Policy() domain.CompletionPolicy {
	return uc.cfg.Policy
}

// BeginSettlement opens the settlement workflow for a session. An already
// open workflow or a cached draft is resumed; otherwise a new settlement is
// seeded from the session data.
func (uc *SettlementUseCase) BeginSettlement(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	if w, ok := uc.open.get(sessionID); ok {
		s := w.Snapshot()
		return &s, nil
	}

	existing, err := uc.settlementRepo.GetBySessionID(ctx, sessionID)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrSettlementCompleted
	case err != nil && !errors.Is(err, domain.ErrSettlementNotFound):
		return nil, err
	}

	if w, ok := uc.resumeDraft(ctx, sessionID); ok {
		s := w.Snapshot()
		return &s, nil
	}

	seeded, err := uc.seed(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	w, created := uc.open.register(seeded)
	s := w.Snapshot()
	if !created {
		return &s, nil
	}

	uc.saveDraft(ctx, s)
	uc.audit(ctx, domain.AuditActionSettlementBegin, s.ID, nil, s)

	uc.logger.Info().
		Str("session_id", sessionID).
		Str("settlement_id", s.ID).
		Str("expected_cash", s.ExpectedCash.String()).
		Int("transactions", len(s.Transactions)).
		Msg("settlement begun")

	if uc.metrics != nil {
		uc.metrics.SettlementsBegun.Inc()
		uc.metrics.OpenWorkflows.Set(float64(uc.open.len()))
	}

	return &s, nil
}

func (uc *SettlementUseCase) seed(ctx context.Context, sessionID string) (domain.Settlement, error) {
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Settlement{}, err
	}

	txs, err := uc.sessions.ListTransactions(ctx, sessionID)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("list transactions: %w", err)
	}

	refunds, err := uc.sessions.ListRefunds(ctx, sessionID)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("list refunds: %w", err)
	}

	return domain.NewSettlement(uc.idGen.Generate(), *session, uc.cfg.Denominations, txs, refunds, uc.now()), nil
}

// resumeDraft registers a workflow from a cached draft, if one exists.
func (uc *SettlementUseCase) resumeDraft(ctx context.Context, sessionID string) (*workflow, bool) {
	if uc.drafts == nil {
		return nil, false
	}

	draftCtx, cancel := context.WithTimeout(ctx, DefaultDraftTimeout)
	defer cancel()

	draft, err := uc.drafts.Load(draftCtx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSettlementNotFound) {
			uc.draftError("load", sessionID, err)
		}
		return nil, false
	}
	if draft.IsCompleted() {
		return nil, false
	}

	w, created := uc.open.register(*draft)
	if created {
		uc.logger.Info().Str("session_id", sessionID).Msg("settlement resumed from draft")
		if uc.metrics != nil {
			uc.metrics.SettlementsResumed.WithLabelValues("draft").Inc()
			uc.metrics.OpenWorkflows.Set(float64(uc.open.len()))
		}
	}
	return w, true
}

// workflowFor returns the open workflow of a session, resuming a draft if
// needed.
func (uc *SettlementUseCase) workflowFor(ctx context.Context, sessionID string) (*workflow, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	if w, ok := uc.open.get(sessionID); ok {
		return w, nil
	}

	existing, err := uc.settlementRepo.GetBySessionID(ctx, sessionID)
	if err == nil && existing != nil {
		return nil, domain.ErrSettlementCompleted
	}
	if err != nil && !errors.Is(err, domain.ErrSettlementNotFound) {
		return nil, err
	}

	if w, ok := uc.resumeDraft(ctx, sessionID); ok {
		return w, nil
	}

	return nil, domain.ErrSettlementNotFound
}

// GetSettlement returns the open settlement of a session, or its completed
// record.
func (uc *SettlementUseCase) GetSettlement(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	w, err := uc.workflowFor(ctx, sessionID)
	if err == nil {
		s := w.Snapshot()
		return &s, nil
	}
	if !errors.Is(err, domain.ErrSettlementCompleted) {
		return nil, err
	}

	return uc.settlementRepo.GetBySessionID(ctx, sessionID)
}

// UpdateNotes replaces the operator notes.
func (uc *SettlementUseCase) UpdateNotes(ctx context.Context, sessionID, notes string) (*domain.Settlement, error) {
	return uc.mutate(ctx, sessionID, func(s domain.Settlement) (domain.Settlement, error) {
		return s.Apply(domain.SettlementUpdate{Notes: &notes})
	})
}

// UpdateDenomination sets the counted quantity of one denomination. Unknown
// labels leave the settlement unchanged and negative counts are stored as
// zero.
func (uc *SettlementUseCase) UpdateDenomination(ctx context.Context, sessionID, label string, count int) (*domain.Settlement, error) {
	return uc.mutate(ctx, sessionID, func(s domain.Settlement) (domain.Settlement, error) {
		return s.WithDenominationCount(label, count)
	})
}

// AddAdjustmentInput represents input for recording an adjustment.
type AddAdjustmentInput struct {
	SessionID string
	Type      domain.AdjustmentType
	Amount    decimal.Decimal
	Reason    string
}

// AddAdjustment validates and records a manual adjustment.
func (uc *SettlementUseCase) AddAdjustment(ctx context.Context, input AddAdjustmentInput) (*domain.Settlement, error) {
	adj, err := domain.NewAdjustment(uc.idGen.Generate(), input.Type, input.Amount, input.Reason, uc.now())
	if err != nil {
		return nil, err
	}

	s, err := uc.mutate(ctx, input.SessionID, func(s domain.Settlement) (domain.Settlement, error) {
		return s.WithAdjustment(adj)
	})
	if err != nil {
		return nil, err
	}

	uc.audit(ctx, domain.AuditActionAdjustmentAdd, s.ID, nil, adj)

	uc.logger.Info().
		Str("session_id", input.SessionID).
		Str("adjustment_id", adj.ID).
		Str("type", string(adj.Type)).
		Str("amount", adj.Amount.String()).
		Msg("adjustment recorded")

	if uc.metrics != nil {
		uc.metrics.AdjustmentsRecorded.WithLabelValues(string(adj.Type)).Inc()
	}

	return s, nil
}

// RemoveAdjustment deletes an adjustment by id. Unknown ids are ignored.
func (uc *SettlementUseCase) RemoveAdjustment(ctx context.Context, sessionID, adjustmentID string) (*domain.Settlement, error) {
	var removed *domain.Adjustment

	s, err := uc.mutate(ctx, sessionID, func(s domain.Settlement) (domain.Settlement, error) {
		for i := range s.Adjustments {
			if s.Adjustments[i].ID == adjustmentID {
				a := s.Adjustments[i]
				removed = &a
				break
			}
		}
		return s.WithoutAdjustment(adjustmentID)
	})
	if err != nil {
		return nil, err
	}

	if removed != nil {
		uc.audit(ctx, domain.AuditActionAdjustmentRemove, s.ID, removed, nil)
		uc.logger.Info().
			Str("session_id", sessionID).
			Str("adjustment_id", adjustmentID).
			Msg("adjustment removed")
		if uc.metrics != nil {
			uc.metrics.AdjustmentsRemoved.Inc()
		}
	}

	return s, nil
}

func (uc *SettlementUseCase) mutate(ctx context.Context, sessionID string, fn func(domain.Settlement) (domain.Settlement, error)) (*domain.Settlement, error) {
	w, err := uc.workflowFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s, err := w.Mutate(fn)
	if err != nil {
		return nil, err
	}

	uc.saveDraft(ctx, s)
	return &s, nil
}

// StatusCards returns the four status summaries of a session's settlement.
func (uc *SettlementUseCase) StatusCards(ctx context.Context, sessionID string) ([]domain.StatusCard, error) {
	s, err := uc.GetSettlement(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return domain.StatusCards(*s), nil
}

// TenderSummary is the tender breakdown of a session.
type TenderSummary struct {
	Totals   domain.TenderTotals
	NonCash  []domain.TransactionSummary
	Refunded decimal.Decimal
}

// TenderSummary classifies the session transactions into tender buckets.
func (uc *SettlementUseCase) TenderSummary(ctx context.Context, sessionID string) (*TenderSummary, error) {
	s, err := uc.GetSettlement(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &TenderSummary{
		Totals:   s.Tenders(),
		NonCash:  domain.NonCashTransactions(s.Transactions),
		Refunded: domain.TotalRefunded(s.Refunds),
	}, nil
}

// CanComplete evaluates the completion guard for a session.
func (uc *SettlementUseCase) CanComplete(ctx context.Context, sessionID string) (bool, error) {
	w, err := uc.workflowFor(ctx, sessionID)
	if errors.Is(err, domain.ErrSettlementCompleted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return domain.CanComplete(uc.cfg.Policy, w.Snapshot(), w.Saving()), nil
}

// CompleteSettlement finalizes a settlement. notes, when non-nil, replace
// the operator notes before the completion guard runs. While the write is in
// flight every other mutation of the session is rejected with
// domain.ErrCompletionInProgress.
func (uc *SettlementUseCase) CompleteSettlement(ctx context.Context, sessionID string, notes *string) (*domain.Settlement, error) {
	w, err := uc.workflowFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pending, err := w.BeginCompletion(uc.cfg.Policy, domain.SettlementUpdate{Notes: notes})
	if err != nil {
		uc.completionFailed(sessionID, err)
		return nil, err
	}

	uc.logger.Info().
		Str("session_id", sessionID).
		Str("difference", pending.Difference().String()).
		Msg("settlement completion attempted")

	start := time.Now()

	completed, err := pending.Complete(uc.now(), domain.OperatorID(ctx))
	if err != nil {
		w.FinishCompletion(nil)
		return nil, err
	}

	persisted, err := uc.persist(ctx, completed)
	if err != nil {
		w.FinishCompletion(nil)
		uc.saveDraft(ctx, pending)
		uc.completionFailed(sessionID, err)
		return nil, err
	}

	w.FinishCompletion(persisted)
	uc.open.remove(sessionID, w)
	uc.deleteDraft(ctx, sessionID)

	uc.logger.Info().
		Str("session_id", sessionID).
		Str("settlement_id", persisted.ID).
		Str("actual_cash", persisted.ActualCash().String()).
		Str("difference", persisted.Difference().String()).
		Str("completed_by", persisted.CompletedBy).
		Msg("settlement completed")

	if uc.metrics != nil {
		uc.metrics.SettlementsCompleted.WithLabelValues(persisted.Variance()).Inc()
		uc.metrics.CompletionDuration.Observe(time.Since(start).Seconds())
		variance, _ := persisted.Difference().Abs().Float64()
		uc.metrics.SettlementVariance.Observe(variance)
		uc.metrics.OpenWorkflows.Set(float64(uc.open.len()))
	}

	return persisted, nil
}

// persist writes a completed settlement, its outbox event and audit log in
// one transaction. If the session already has a completed record, that
// record is adopted instead of writing a second one.
func (uc *SettlementUseCase) persist(ctx context.Context, s domain.Settlement) (*domain.Settlement, error) {
	write := func() error {
		return uc.writeCompleted(ctx, s)
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, write)
	} else {
		err = write()
	}

	if errors.Is(err, domain.ErrSettlementAlreadyPersisted) {
		existing, getErr := uc.settlementRepo.GetBySessionID(ctx, s.SessionID)
		if getErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, getErr)
		}

		uc.logger.Warn().
			Str("session_id", s.SessionID).
			Str("settlement_id", existing.ID).
			Msg("adopting already persisted settlement")

		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err)
	}

	return &s, nil
}

func (uc *SettlementUseCase) writeCompleted(ctx context.Context, s domain.Settlement) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.settlementRepo.Create(txCtx, tx, &s); err != nil {
		return err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   s.ID,
		AggregateType: domain.AggregateTypeSettlement,
		EventType:     domain.EventTypeSettlementCompleted,
		Payload:       domain.NewSettlementCompletedEvent(s).Payload(),
		CreatedAt:     uc.now(),
		Published:     false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return err
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			UserID:       domain.OperatorID(ctx),
			Action:       string(domain.AuditActionSettlementComplete),
			ResourceType: domain.ResourceTypeSettlement,
			ResourceID:   s.ID,
			AfterState:   domain.MarshalState(domain.NewSettlementCompletedEvent(s)),
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    uc.now(),
		}
		if err := uc.auditRepo.CreateTx(txCtx, tx, auditLog); err != nil {
			return err
		}
	}

	return tx.Commit(txCtx)
}

// ListCompletedInput represents input for listing completed settlements.
type ListCompletedInput struct {
	Limit  int
	Offset int
}

// ListCompleted returns persisted settlements, newest first.
func (uc *SettlementUseCase) ListCompleted(ctx context.Context, input ListCompletedInput) ([]*domain.Settlement, error) {
	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	return uc.settlementRepo.List(ctx, limit, offset)
}

// CountCompleted returns the number of persisted settlements.
func (uc *SettlementUseCase) CountCompleted(ctx context.Context) (int64, error) {
	return uc.settlementRepo.Count(ctx)
}

func (uc *SettlementUseCase) saveDraft(ctx context.Context, s domain.Settlement) {
	if uc.drafts == nil {
		return
	}

	draftCtx, cancel := context.WithTimeout(ctx, DefaultDraftTimeout)
	defer cancel()

	if err := uc.drafts.Save(draftCtx, s); err != nil {
		uc.draftError("save", s.SessionID, err)
		return
	}
	if uc.metrics != nil {
		uc.metrics.DraftSaves.WithLabelValues("save").Inc()
	}
}

func (uc *SettlementUseCase) deleteDraft(ctx context.Context, sessionID string) {
	if uc.drafts == nil {
		return
	}

	draftCtx, cancel := context.WithTimeout(ctx, DefaultDraftTimeout)
	defer cancel()

	if err := uc.drafts.Delete(draftCtx, sessionID); err != nil {
		uc.draftError("delete", sessionID, err)
		return
	}
	if uc.metrics != nil {
		uc.metrics.DraftSaves.WithLabelValues("delete").Inc()
	}
}

func (uc *SettlementUseCase) draftError(op, sessionID string, err error) {
	uc.logger.Warn().Err(err).Str("session_id", sessionID).Str("operation", op).Msg("draft store failed")
	if uc.metrics != nil {
		uc.metrics.DraftErrors.WithLabelValues(op).Inc()
	}
}

// audit records a non-transactional audit entry. Failures are logged only.
func (uc *SettlementUseCase) audit(ctx context.Context, action domain.AuditAction, resourceID string, before, after any) {
	if uc.auditRepo == nil {
		return
	}

	auditLog := &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		UserID:       domain.OperatorID(ctx),
		Action:       string(action),
		ResourceType: domain.ResourceTypeSettlement,
		ResourceID:   resourceID,
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    uc.now(),
	}

	if err := uc.auditRepo.Create(ctx, auditLog); err != nil {
		uc.logger.Warn().Err(err).Str("action", string(action)).Msg("failed to write audit log")
		return
	}
	if uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(string(action), auditLog.Status).Inc()
	}
}

func (uc *SettlementUseCase) completionFailed(sessionID string, err error) {
	reason := "persistence"
	switch {
	case errors.Is(err, domain.ErrCompletionInProgress):
		reason = "in_progress"
	case errors.Is(err, domain.ErrSettlementCompleted):
		reason = "already_completed"
	case errors.Is(err, domain.ErrCashNotCounted):
		reason = "cash_not_counted"
	case errors.Is(err, domain.ErrCannotComplete):
		reason = "policy"
	case errors.Is(err, domain.ErrNotesTooLong):
		reason = "validation"
	}

	uc.logger.Warn().Err(err).Str("session_id", sessionID).Str("reason", reason).Msg("settlement completion failed")
	if uc.metrics != nil {
		uc.metrics.CompletionFailures.WithLabelValues(reason).Inc()
	}
}
