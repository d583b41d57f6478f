package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/tillclose/internal/adapter/http/dto"
	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/usecase"
)

// SettlementService defines the behavior needed by SettlementHandler.
type SettlementService interface {
	BeginSettlement(ctx context.Context, sessionID string) (*domain.Settlement, error)
	GetSettlement(ctx context.Context, sessionID string) (*domain.Settlement, error)
	UpdateNotes(ctx context.Context, sessionID, notes string) (*domain.Settlement, error)
	UpdateDenomination(ctx context.Context, sessionID, label string, count int) (*domain.Settlement, error)
	AddAdjustment(ctx context.Context, input usecase.AddAdjustmentInput) (*domain.Settlement, error)
	RemoveAdjustment(ctx context.Context, sessionID, adjustmentID string) (*domain.Settlement, error)
	StatusCards(ctx context.Context, sessionID string) ([]domain.StatusCard, error)
	TenderSummary(ctx context.Context, sessionID string) (*usecase.TenderSummary, error)
	CanComplete(ctx context.Context, sessionID string) (bool, error)
	CompleteSettlement(ctx context.Context, sessionID string, notes *string) (*domain.Settlement, error)
	ListCompleted(ctx context.Context, input usecase.ListCompletedInput) ([]*domain.Settlement, error)
	CountCompleted(ctx context.Context) (int64, error)
	Denominations() domain.DenominationSet
	Policy() domain.CompletionPolicy
}

// SettlementHandler handles settlement-related HTTP requests.
type SettlementHandler struct {
	settlementUC SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementUC SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementUC: settlementUC}
}

// Begin opens or resumes the settlement of a session.
func (h *SettlementHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var req dto.BeginSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	settlement, err := h.settlementUC.BeginSettlement(r.Context(), req.SessionID)
	if err != nil {
		writeDomainError(w, "failed to begin settlement", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SettlementFromDomain(settlement))
}

// Get retrieves the settlement of a session.
func (h *SettlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	settlement, err := h.settlementUC.GetSettlement(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, "failed to get settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// UpdateNotes replaces the operator notes.
func (h *SettlementHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	settlement, err := h.settlementUC.UpdateNotes(r.Context(), chi.URLParam(r, "sessionID"), req.Notes)
	if err != nil {
		writeDomainError(w, "failed to update notes", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// UpdateDenomination sets the counted quantity of one denomination.
func (h *SettlementHandler) UpdateDenomination(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateDenominationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	settlement, err := h.settlementUC.UpdateDenomination(
		r.Context(),
		chi.URLParam(r, "sessionID"),
		chi.URLParam(r, "label"),
		req.Count,
	)
	if err != nil {
		writeDomainError(w, "failed to update denomination", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// AddAdjustment records a manual adjustment.
func (h *SettlementHandler) AddAdjustment(w http.ResponseWriter, r *http.Request) {
	var req dto.AddAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	settlement, err := h.settlementUC.AddAdjustment(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "sessionID")))
	if err != nil {
		writeDomainError(w, "failed to add adjustment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SettlementFromDomain(settlement))
}

// RemoveAdjustment deletes an adjustment.
func (h *SettlementHandler) RemoveAdjustment(w http.ResponseWriter, r *http.Request) {
	settlement, err := h.settlementUC.RemoveAdjustment(
		r.Context(),
		chi.URLParam(r, "sessionID"),
		chi.URLParam(r, "adjustmentID"),
	)
	if err != nil {
		writeDomainError(w, "failed to remove adjustment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// Status returns the four status cards and whether the settlement can be
// completed under the configured policy.
func (h *SettlementHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	cards, err := h.settlementUC.StatusCards(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, "failed to get status", err)
		return
	}

	canComplete, err := h.settlementUC.CanComplete(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, "failed to evaluate completion", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatusResponse{
		SessionID:   sessionID,
		Cards:       dto.StatusCardsFromDomain(cards),
		CanComplete: canComplete,
		Policy:      string(h.settlementUC.Policy()),
	})
}

// Tenders returns the tender breakdown of a session.
func (h *SettlementHandler) Tenders(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.settlementUC.TenderSummary(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, "failed to get tenders", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TenderSummaryFromUseCase(sessionID, summary))
}

// Complete finalizes a settlement. An empty body is accepted.
func (h *SettlementHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	settlement, err := h.settlementUC.CompleteSettlement(r.Context(), chi.URLParam(r, "sessionID"), req.Notes)
	if err != nil {
		writeDomainError(w, "failed to complete settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// List lists completed settlements, newest first.
func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	settlements, err := h.settlementUC.ListCompleted(r.Context(), usecase.ListCompletedInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, "failed to list settlements", err)
		return
	}

	total, err := h.settlementUC.CountCompleted(r.Context())
	if err != nil {
		writeDomainError(w, "failed to count settlements", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListSettlementsResponse{
		Settlements: dto.SettlementsFromDomain(settlements),
		Total:       total,
	})
}

// Denominations lists the configured face values in display order.
func (h *SettlementHandler) Denominations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.DenominationsFromDomain(h.settlementUC.Denominations()))
}
