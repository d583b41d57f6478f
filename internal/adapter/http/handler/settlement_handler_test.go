package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/adapter/http/dto"
	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/usecase"
)

// settlementServiceStub answers every call with fixture unless a hook is set.
type settlementServiceStub struct {
	fixture *domain.Settlement

	beginFn      func(ctx context.Context, sessionID string) (*domain.Settlement, error)
	getFn        func(ctx context.Context, sessionID string) (*domain.Settlement, error)
	notesFn      func(ctx context.Context, sessionID, notes string) (*domain.Settlement, error)
	countFn      func(ctx context.Context, sessionID, label string, count int) (*domain.Settlement, error)
	addFn        func(ctx context.Context, input usecase.AddAdjustmentInput) (*domain.Settlement, error)
	removeFn     func(ctx context.Context, sessionID, adjustmentID string) (*domain.Settlement, error)
	canFn        func(ctx context.Context, sessionID string) (bool, error)
	completeFn   func(ctx context.Context, sessionID string, notes *string) (*domain.Settlement, error)
	listFn       func(ctx context.Context, input usecase.ListCompletedInput) ([]*domain.Settlement, error)
	total        int64
	countErr     error
	tenderSumFn  func(ctx context.Context, sessionID string) (*usecase.TenderSummary, error)
	statusCardFn func(ctx context.Context, sessionID string) ([]domain.StatusCard, error)
}

func (s *settlementServiceStub) BeginSettlement(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	if s.beginFn != nil {
		return s.beginFn(ctx, sessionID)
	}
	return s.fixture, nil
}

func (s *settlementServiceStub) GetSettlement(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	if s.getFn != nil {
		return s.getFn(ctx, sessionID)
	}
	return s.fixture, nil
}

func (s *settlementServiceStub) UpdateNotes(ctx context.Context, sessionID, notes string) (*domain.Settlement, error) {
	if s.notesFn != nil {
		return s.notesFn(ctx, sessionID, notes)
	}
	return s.fixture, nil
}

func (s *settlementServiceStub) UpdateDenomination(ctx context.Context, sessionID, label string, count int) (*domain.Settlement, error) {
	if s.countFn != nil {
		return s.countFn(ctx, sessionID, label, count)
	}
	return s.fixture, nil
}

func (s *settlementServiceStub) AddAdjustment(ctx context.Context, input usecase.AddAdjustmentInput) (*domain.Settlement, error) {
	if s.addFn != nil {
		return s.addFn(ctx, input)
	}
	return s.fixture, nil
}

func (s *settlementServiceStub) RemoveAdjustment(ctx context.Context, sessionID, adjustmentID string) (*domain.Settlement, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, sessionID, adjustmentID)
	}
	return s.fixture, nil
}

func (s *settlementServiceStub) StatusCards(ctx context.Context, sessionID string) ([]domain.StatusCard, error) {
	if s.statusCardFn != nil {
		return s.statusCardFn(ctx, sessionID)
	}
	return domain.StatusCards(*s.fixture), nil
}

func (s *settlementServiceStub) TenderSummary(ctx context.Context, sessionID string) (*usecase.TenderSummary, error) {
	if s.tenderSumFn != nil {
		return s.tenderSumFn(ctx, sessionID)
	}
	return &usecase.TenderSummary{
		Totals:   s.fixture.Tenders(),
		NonCash:  domain.NonCashTransactions(s.fixture.Transactions),
		Refunded: domain.TotalRefunded(s.fixture.Refunds),
	}, nil
}

func (s *settlementServiceStub) CanComplete(ctx context.Context, sessionID string) (bool, error) {
	if s.canFn != nil {
		return s.canFn(ctx, sessionID)
	}
	return false, nil
}

func (s *settlementServiceStub) CompleteSettlement(ctx context.Context, sessionID string, notes *string) (*domain.Settlement, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, sessionID, notes)
	}
	return s.fixture, nil
}

func (s *settlementServiceStub) CountCompleted(ctx context.Context) (int64, error) {
	return s.total, s.countErr
}

func (s *settlementServiceStub) ListCompleted(ctx context.Context, input usecase.ListCompletedInput) ([]*domain.Settlement, error) {
	if s.listFn != nil {
		return s.listFn(ctx, input)
	}
	return []*domain.Settlement{s.fixture}, nil
}

func (s *settlementServiceStub) Denominations() domain.DenominationSet {
	return domain.DefaultDenominationSet()
}

func (s *settlementServiceStub) Policy() domain.CompletionPolicy {
	return domain.CompletionPolicyJustified
}

func fixtureSettlement() *domain.Settlement {
	s := domain.NewSettlement(
		"stl-1",
		domain.Session{
			ID:             "sess-1",
			OpeningBalance: decimal.RequireFromString("100"),
			ExpectedCash:   decimal.RequireFromString("250"),
		},
		domain.DefaultDenominationSet(),
		[]domain.TransactionSummary{
			{ID: "t1", PaymentMethod: "Cash", Total: decimal.RequireFromString("150"), Status: "paid"},
			{ID: "t2", PaymentMethod: "Visa Card", Total: decimal.RequireFromString("80"), Status: "paid"},
		},
		[]domain.Refund{{ID: "r1", Amount: decimal.RequireFromString("5")}},
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	)
	return &s
}

func setChiURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestSettlementHandler_Begin(t *testing.T) {
	var captured string
	h := NewSettlementHandler(&settlementServiceStub{
		beginFn: func(ctx context.Context, sessionID string) (*domain.Settlement, error) {
			captured = sessionID
			return fixtureSettlement(), nil
		},
	})

	body, _ := json.Marshal(dto.BeginSettlementRequest{SessionID: "sess-1"})
	rec := httptest.NewRecorder()
	h.Begin(rec, httptest.NewRequest(http.MethodPost, "/settlements", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured != "sess-1" {
		t.Fatalf("expected session sess-1, got %q", captured)
	}

	var resp dto.SettlementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "stl-1" || resp.Status != "pending" || !resp.ExpectedCash.Equal(decimal.RequireFromString("250")) {
		t.Fatalf("unexpected settlement response: %+v", resp)
	}
	if len(resp.Denominations) != domain.DefaultDenominationSet().Len() {
		t.Fatalf("expected every denomination row, got %d", len(resp.Denominations))
	}
}

func TestSettlementHandler_Begin_InvalidJSON(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		beginFn: func(ctx context.Context, sessionID string) (*domain.Settlement, error) {
			t.Fatal("BeginSettlement should not be called for invalid payload")
			return nil, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Begin(rec, httptest.NewRequest(http.MethodPost, "/settlements", strings.NewReader("{invalid json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSettlementHandler_Begin_AlreadyCompleted(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		beginFn: func(ctx context.Context, sessionID string) (*domain.Settlement, error) {
			return nil, domain.ErrSettlementCompleted
		},
	})

	rec := httptest.NewRecorder()
	h.Begin(rec, httptest.NewRequest(http.MethodPost, "/settlements", strings.NewReader(`{"session_id":"sess-1"}`)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSettlementHandler_Get_NotFound(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		getFn: func(ctx context.Context, sessionID string) (*domain.Settlement, error) {
			if sessionID != "missing" {
				t.Fatalf("expected session id from url, got %q", sessionID)
			}
			return nil, domain.ErrSettlementNotFound
		},
	})

	req := setChiURLParams(httptest.NewRequest(http.MethodGet, "/settlements/missing", nil), "sessionID", "missing")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSettlementHandler_UpdateDenomination(t *testing.T) {
	var gotLabel string
	var gotCount int
	h := NewSettlementHandler(&settlementServiceStub{
		countFn: func(ctx context.Context, sessionID, label string, count int) (*domain.Settlement, error) {
			gotLabel, gotCount = label, count
			s := fixtureSettlement()
			updated, err := s.WithDenominationCount(label, count)
			return &updated, err
		},
	})

	req := httptest.NewRequest(http.MethodPut, "/settlements/sess-1/denominations/100", strings.NewReader(`{"count":2}`))
	req = setChiURLParams(req, "sessionID", "sess-1", "label", "100")
	rec := httptest.NewRecorder()
	h.UpdateDenomination(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotLabel != "100" || gotCount != 2 {
		t.Fatalf("expected label 100 count 2, got %q %d", gotLabel, gotCount)
	}

	var resp dto.SettlementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.ActualCash.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("expected actual cash 200, got %s", resp.ActualCash)
	}
}

func TestSettlementHandler_AddAdjustment(t *testing.T) {
	var captured usecase.AddAdjustmentInput
	h := NewSettlementHandler(&settlementServiceStub{
		fixture: fixtureSettlement(),
		addFn: func(ctx context.Context, input usecase.AddAdjustmentInput) (*domain.Settlement, error) {
			captured = input
			return fixtureSettlement(), nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/settlements/sess-1/adjustments",
		strings.NewReader(`{"type":"subtract","amount":"12.50","reason":"till float"}`))
	req = setChiURLParams(req, "sessionID", "sess-1")
	rec := httptest.NewRecorder()
	h.AddAdjustment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.SessionID != "sess-1" || captured.Type != domain.AdjustmentTypeSubtract ||
		!captured.Amount.Equal(decimal.RequireFromString("12.5")) || captured.Reason != "till float" {
		t.Fatalf("unexpected adjustment input: %+v", captured)
	}
}

func TestSettlementHandler_AddAdjustment_ValidationError(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		addFn: func(ctx context.Context, input usecase.AddAdjustmentInput) (*domain.Settlement, error) {
			return nil, domain.ErrInvalidReason
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/settlements/sess-1/adjustments",
		strings.NewReader(`{"type":"add","amount":"1","reason":" "}`))
	req = setChiURLParams(req, "sessionID", "sess-1")
	rec := httptest.NewRecorder()
	h.AddAdjustment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSettlementHandler_RemoveAdjustment(t *testing.T) {
	var gotID string
	h := NewSettlementHandler(&settlementServiceStub{
		removeFn: func(ctx context.Context, sessionID, adjustmentID string) (*domain.Settlement, error) {
			gotID = adjustmentID
			return fixtureSettlement(), nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/settlements/sess-1/adjustments/adj-9", nil)
	req = setChiURLParams(req, "sessionID", "sess-1", "adjustmentID", "adj-9")
	rec := httptest.NewRecorder()
	h.RemoveAdjustment(rec, req)

	if rec.Code != http.StatusOK || gotID != "adj-9" {
		t.Fatalf("expected 200 for adj-9, got %d id=%q", rec.Code, gotID)
	}
}

func TestSettlementHandler_Status(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		fixture: fixtureSettlement(),
		canFn:   func(ctx context.Context, sessionID string) (bool, error) { return true, nil },
	})

	req := setChiURLParams(httptest.NewRequest(http.MethodGet, "/settlements/sess-1/status", nil), "sessionID", "sess-1")
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Cards) != 4 || !resp.CanComplete || resp.Policy != "justified" {
		t.Fatalf("unexpected status response: %+v", resp)
	}
	if resp.Cards[0].Kind != string(domain.StatusCardCashCount) {
		t.Fatalf("expected cash count card first, got %s", resp.Cards[0].Kind)
	}
}

func TestSettlementHandler_Tenders(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{fixture: fixtureSettlement()})

	req := setChiURLParams(httptest.NewRequest(http.MethodGet, "/settlements/sess-1/tenders", nil), "sessionID", "sess-1")
	rec := httptest.NewRecorder()
	h.Tenders(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.TenderSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Cash.Equal(decimal.RequireFromString("150")) || !resp.Card.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("unexpected bucket totals: %+v", resp)
	}
	if len(resp.NonCash) != 1 || resp.NonCash[0].ID != "t2" {
		t.Fatalf("expected only the card transaction in the non-cash list, got %+v", resp.NonCash)
	}
	if !resp.Refunded.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected refunded 5, got %s", resp.Refunded)
	}
}

func TestSettlementHandler_Complete(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		err       error
		wantCode  int
		wantNotes *string
	}{
		{name: "empty body", body: "", wantCode: http.StatusOK},
		{name: "with notes", body: `{"notes":"short by one coin"}`, wantCode: http.StatusOK, wantNotes: ptr("short by one coin")},
		{name: "guard rejected", body: "", err: fmt.Errorf("%w: %w", domain.ErrCannotComplete, domain.ErrCashNotCounted), wantCode: http.StatusUnprocessableEntity},
		{name: "in flight", body: "", err: domain.ErrCompletionInProgress, wantCode: http.StatusConflict},
		{name: "persistence failed", body: "", err: fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, errors.New("disk full")), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotNotes *string
			h := NewSettlementHandler(&settlementServiceStub{
				completeFn: func(ctx context.Context, sessionID string, notes *string) (*domain.Settlement, error) {
					gotNotes = notes
					if tt.err != nil {
						return nil, tt.err
					}
					return fixtureSettlement(), nil
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/settlements/sess-1/complete", strings.NewReader(tt.body))
			req = setChiURLParams(req, "sessionID", "sess-1")
			rec := httptest.NewRecorder()
			h.Complete(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if (tt.wantNotes == nil) != (gotNotes == nil) || (tt.wantNotes != nil && *tt.wantNotes != *gotNotes) {
				t.Fatalf("unexpected notes passed through: %v", gotNotes)
			}
		})
	}
}

func TestSettlementHandler_List(t *testing.T) {
	var captured usecase.ListCompletedInput
	h := NewSettlementHandler(&settlementServiceStub{
		fixture: fixtureSettlement(),
		total:   42,
		listFn: func(ctx context.Context, input usecase.ListCompletedInput) ([]*domain.Settlement, error) {
			captured = input
			return []*domain.Settlement{fixtureSettlement()}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/settlements?limit=5&offset=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Limit != 5 || captured.Offset != 10 {
		t.Fatalf("expected limit 5 offset 10, got %+v", captured)
	}

	var resp dto.ListSettlementsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 42 || len(resp.Settlements) != 1 || resp.Settlements[0].SessionID != "sess-1" {
		t.Fatalf("expected one settlement of 42 in total, got %+v", resp)
	}
}

func TestSettlementHandler_ListCountFailure(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		fixture:  fixtureSettlement(),
		countErr: errors.New("db down"),
	})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/settlements", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSettlementHandler_Denominations(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{})

	rec := httptest.NewRecorder()
	h.Denominations(rec, httptest.NewRequest(http.MethodGet, "/denominations", nil))

	var resp []dto.DenominationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != domain.DefaultDenominationSet().Len() {
		t.Fatalf("expected %d denominations, got %d", domain.DefaultDenominationSet().Len(), len(resp))
	}
}

func ptr(s string) *string { return &s }
