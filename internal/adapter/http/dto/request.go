package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/usecase"
)

// BeginSettlementRequest represents a request to open a settlement.
type BeginSettlementRequest struct {
	SessionID string `json:"session_id"`
}

// UpdateNotesRequest represents a request to replace the operator notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateDenominationRequest represents a counted quantity of one denomination.
type UpdateDenominationRequest struct {
	Count int `json:"count"`
}

// AddAdjustmentRequest represents a request to record an adjustment.
type AddAdjustmentRequest struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// ToUseCaseInput converts to use case input.
func (r *AddAdjustmentRequest) ToUseCaseInput(sessionID string) usecase.AddAdjustmentInput {
	return usecase.AddAdjustmentInput{
		SessionID: sessionID,
		Type:      domain.AdjustmentType(r.Type),
		Amount:    r.Amount,
		Reason:    r.Reason,
	}
}

// CompleteSettlementRequest represents a request to finalize a settlement.
// Notes, when present, replace the operator notes before the guard runs.
type CompleteSettlementRequest struct {
	Notes *string `json:"notes,omitempty"`
}
