package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentType is the direction of a manual cash adjustment.
type AdjustmentType string

const (
	AdjustmentTypeAdd      AdjustmentType = "add"
	AdjustmentTypeSubtract AdjustmentType = "subtract"
)

// IsValid reports whether t is a known adjustment type.
func (t AdjustmentType) IsValid() bool {
	return t == AdjustmentTypeAdd || t == AdjustmentTypeSubtract
}

// Adjustment is an immutable, manually recorded cash correction.
type Adjustment struct {
	ID        string
	Type      AdjustmentType
	Amount    decimal.Decimal
	Reason    string
	Timestamp time.Time
}

// NewAdjustment validates the inputs and builds an adjustment.
func NewAdjustment(id string, typ AdjustmentType, amount decimal.Decimal, reason string, at time.Time) (Adjustment, error) {
	if !typ.IsValid() {
		return Adjustment{}, ErrInvalidAdjustmentType
	}

	if err := ValidateAmount(amount); err != nil {
		return Adjustment{}, err
	}

	if err := ValidateReason(reason); err != nil {
		return Adjustment{}, err
	}

	return Adjustment{
		ID:        id,
		Type:      typ,
		Amount:    amount,
		Reason:    strings.TrimSpace(reason),
		Timestamp: at,
	}, nil
}

// Signed returns the amount with subtract adjustments negated.
func (a Adjustment) Signed() decimal.Decimal {
	if a.Type == AdjustmentTypeSubtract {
		return a.Amount.Neg()
	}
	return a.Amount
}

// NetImpact is Σ add amounts − Σ subtract amounts. It is informational and
// never feeds back into a settlement's difference.
func NetImpact(adjustments []Adjustment) decimal.Decimal {
	net := decimal.Zero
	for _, a := range adjustments {
		net = net.Add(a.Signed())
	}
	return net
}
