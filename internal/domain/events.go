package domain

import "time"

// Event types
const (
	EventTypeSettlementCompleted = "settlement.completed"
)

// Aggregate types
const (
	AggregateTypeSettlement = "settlement"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// SettlementCompletedEvent payload
type SettlementCompletedEvent struct {
	SettlementID   string `json:"settlement_id"`
	SessionID      string `json:"session_id"`
	OpeningBalance string `json:"opening_balance"`
	ExpectedCash   string `json:"expected_cash"`
	ActualCash     string `json:"actual_cash"`
	Difference     string `json:"difference"`
	NetAdjustment  string `json:"net_adjustment"`
	Adjustments    int    `json:"adjustments"`
	CompletedBy    string `json:"completed_by"`
	CompletedAt    string `json:"completed_at"`
}

// NewSettlementCompletedEvent builds the outbox payload for a completed settlement.
func NewSettlementCompletedEvent(s Settlement) SettlementCompletedEvent {
	completedAt := ""
	if s.EndTime != nil {
		completedAt = s.EndTime.UTC().Format(time.RFC3339)
	}

	return SettlementCompletedEvent{
		SettlementID:   s.ID,
		SessionID:      s.SessionID,
		OpeningBalance: s.OpeningBalance.String(),
		ExpectedCash:   s.ExpectedCash.String(),
		ActualCash:     s.ActualCash().String(),
		Difference:     s.Difference().String(),
		NetAdjustment:  s.NetAdjustment().String(),
		Adjustments:    len(s.Adjustments),
		CompletedBy:    s.CompletedBy,
		CompletedAt:    completedAt,
	}
}

// Payload flattens the event into an outbox payload map.
func (e SettlementCompletedEvent) Payload() map[string]any {
	return map[string]any{
		"settlement_id":   e.SettlementID,
		"session_id":      e.SessionID,
		"opening_balance": e.OpeningBalance,
		"expected_cash":   e.ExpectedCash,
		"actual_cash":     e.ActualCash,
		"difference":      e.Difference,
		"net_adjustment":  e.NetAdjustment,
		"adjustments":     e.Adjustments,
		"completed_by":    e.CompletedBy,
		"completed_at":    e.CompletedAt,
	}
}
