package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/usecase"
)

// DenominationCountResponse represents one counted denomination.
type DenominationCountResponse struct {
	Label     string          `json:"label"`
	FaceValue decimal.Decimal `json:"face_value"`
	Count     int             `json:"count"`
	Amount    decimal.Decimal `json:"amount"`
}

// AdjustmentResponse represents an adjustment in API responses.
type AdjustmentResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Timestamp time.Time       `json:"timestamp"`
}

// TransactionResponse represents a session transaction.
type TransactionResponse struct {
	ID            string          `json:"id"`
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
}

// RefundResponse represents a session refund.
type RefundResponse struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// SettlementResponse represents a settlement in API responses.
type SettlementResponse struct {
	ID             string                      `json:"id"`
	SessionID      string                      `json:"session_id"`
	Status         string                      `json:"status"`
	OpeningBalance decimal.Decimal             `json:"opening_balance"`
	ExpectedCash   decimal.Decimal             `json:"expected_cash"`
	ActualCash     decimal.Decimal             `json:"actual_cash"`
	Difference     decimal.Decimal             `json:"difference"`
	Variance       string                      `json:"variance"`
	NetAdjustment  decimal.Decimal             `json:"net_adjustment"`
	Denominations  []DenominationCountResponse `json:"denominations"`
	Adjustments    []AdjustmentResponse        `json:"adjustments"`
	Transactions   []TransactionResponse       `json:"transactions"`
	Refunds        []RefundResponse            `json:"refunds"`
	Notes          string                      `json:"notes"`
	StartTime      time.Time                   `json:"start_time"`
	EndTime        *time.Time                  `json:"end_time,omitempty"`
	CompletedBy    string                      `json:"completed_by,omitempty"`
}

// SettlementFromDomain converts a domain settlement to response.
func SettlementFromDomain(s *domain.Settlement) *SettlementResponse {
	resp := &SettlementResponse{
		ID:             s.ID,
		SessionID:      s.SessionID,
		Status:         string(s.Status),
		OpeningBalance: s.OpeningBalance,
		ExpectedCash:   s.ExpectedCash,
		ActualCash:     s.ActualCash(),
		Difference:     s.Difference(),
		Variance:       s.Variance(),
		NetAdjustment:  s.NetAdjustment(),
		Denominations:  make([]DenominationCountResponse, len(s.Denominations)),
		Adjustments:    make([]AdjustmentResponse, len(s.Adjustments)),
		Transactions:   TransactionsFromDomain(s.Transactions),
		Refunds:        make([]RefundResponse, len(s.Refunds)),
		Notes:          s.Notes,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		CompletedBy:    s.CompletedBy,
	}

	for i, d := range s.Denominations {
		resp.Denominations[i] = DenominationCountResponse{
			Label:     d.Label,
			FaceValue: d.FaceValue,
			Count:     d.Count,
			Amount:    d.Amount,
		}
	}
	for i, a := range s.Adjustments {
		resp.Adjustments[i] = AdjustmentResponse{
			ID:        a.ID,
			Type:      string(a.Type),
			Amount:    a.Amount,
			Reason:    a.Reason,
			Timestamp: a.Timestamp,
		}
	}
	for i, r := range s.Refunds {
		resp.Refunds[i] = RefundResponse{ID: r.ID, Amount: r.Amount}
	}

	return resp
}

// SettlementsFromDomain converts domain settlements to responses.
func SettlementsFromDomain(settlements []*domain.Settlement) []*SettlementResponse {
	result := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		result[i] = SettlementFromDomain(s)
	}
	return result
}

// TransactionsFromDomain converts transaction summaries to responses.
func TransactionsFromDomain(txs []domain.TransactionSummary) []TransactionResponse {
	result := make([]TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionResponse{
			ID:            t.ID,
			PaymentMethod: t.PaymentMethod,
			Total:         t.Total,
			Status:        t.Status,
		}
	}
	return result
}

// ListSettlementsResponse represents a page of completed settlements.
type ListSettlementsResponse struct {
	Settlements []*SettlementResponse `json:"settlements"`
	Total       int64                 `json:"total"`
}

// StatusCardResponse represents one status card.
type StatusCardResponse struct {
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Severity   string `json:"severity"`
	ShortValue string `json:"short_value"`
	DetailText string `json:"detail_text"`
}

// StatusResponse carries the four status cards and the completion guard.
type StatusResponse struct {
	SessionID   string               `json:"session_id"`
	Cards       []StatusCardResponse `json:"cards"`
	CanComplete bool                 `json:"can_complete"`
	Policy      string               `json:"policy"`
}

// StatusCardsFromDomain converts status cards to responses.
func StatusCardsFromDomain(cards []domain.StatusCard) []StatusCardResponse {
	result := make([]StatusCardResponse, len(cards))
	for i, c := range cards {
		result[i] = StatusCardResponse{
			Kind:       string(c.Kind),
			Title:      c.Title,
			Severity:   string(c.Severity),
			ShortValue: c.ShortValue,
			DetailText: c.DetailText,
		}
	}
	return result
}

// TenderSummaryResponse represents the tender breakdown of a session.
type TenderSummaryResponse struct {
	SessionID string                `json:"session_id"`
	Cash      decimal.Decimal       `json:"cash"`
	Card      decimal.Decimal       `json:"card"`
	Digital   decimal.Decimal       `json:"digital"`
	Others    decimal.Decimal       `json:"others"`
	Total     decimal.Decimal       `json:"total"`
	NonCash   []TransactionResponse `json:"non_cash"`
	Refunded  decimal.Decimal       `json:"refunded"`
}

// TenderSummaryFromUseCase converts a tender summary to response.
func TenderSummaryFromUseCase(sessionID string, t *usecase.TenderSummary) *TenderSummaryResponse {
	return &TenderSummaryResponse{
		SessionID: sessionID,
		Cash:      t.Totals.Cash,
		Card:      t.Totals.Card,
		Digital:   t.Totals.Digital,
		Others:    t.Totals.Others,
		Total:     t.Totals.Total(),
		NonCash:   TransactionsFromDomain(t.NonCash),
		Refunded:  t.Refunded,
	}
}

// DenominationResponse represents one configured face value.
type DenominationResponse struct {
	Label     string          `json:"label"`
	FaceValue decimal.Decimal `json:"face_value"`
}

// DenominationsFromDomain converts a denomination set to responses.
func DenominationsFromDomain(set domain.DenominationSet) []DenominationResponse {
	items := set.Items()
	result := make([]DenominationResponse, len(items))
	for i, d := range items {
		result[i] = DenominationResponse{Label: d.Label, FaceValue: d.FaceValue}
	}
	return result
}

// TokenResponse carries a minted operator token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents health check response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}
