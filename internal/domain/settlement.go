package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusCompleted SettlementStatus = "completed"
)

// Variance classifications used for reporting.
const (
	VarianceBalanced = "balanced"
	VarianceOver     = "over"
	VarianceShort    = "short"
)

// Session is the shift record a settlement closes out.
type Session struct {
	ID             string
	TerminalID     string
	OpeningBalance decimal.Decimal
	ExpectedCash   decimal.Decimal
	StartedAt      time.Time
}

// Settlement is the reconciliation aggregate of one POS session.
//
// Settlement values are snapshots: every mutating method returns a new value
// and leaves the receiver untouched. ActualCash and Difference are computed
// from the denomination counts on every call.
type Settlement struct {
	ID             string
	SessionID      string
	OpeningBalance decimal.Decimal
	ExpectedCash   decimal.Decimal
	Denominations  []DenominationCount
	Adjustments    []Adjustment
	Transactions   []TransactionSummary
	Refunds        []Refund
	Notes          string
	Status         SettlementStatus
	StartTime      time.Time
	EndTime        *time.Time
	CompletedBy    string
}

// NewSettlement seeds a pending settlement for a session.
func NewSettlement(id string, session Session, set DenominationSet, txs []TransactionSummary, refunds []Refund, now time.Time) Settlement {
	start := session.StartedAt
	if start.IsZero() {
		start = now
	}

	return Settlement{
		ID:             id,
		SessionID:      session.ID,
		OpeningBalance: session.OpeningBalance,
		ExpectedCash:   session.ExpectedCash,
		Denominations:  set.EmptyCounts(),
		Adjustments:    []Adjustment{},
		Transactions:   append([]TransactionSummary(nil), txs...),
		Refunds:        append([]Refund(nil), refunds...),
		Status:         SettlementStatusPending,
		StartTime:      start,
	}
}

// ActualCash is the sum of all counted denomination amounts.
func (s Settlement) ActualCash() decimal.Decimal {
	return TotalCounted(s.Denominations)
}

// Difference is ActualCash − ExpectedCash.
func (s Settlement) Difference() decimal.Decimal {
	return s.ActualCash().Sub(s.ExpectedCash)
}

// Variance classifies Difference as over, short or balanced.
func (s Settlement) Variance() string {
	d := s.Difference()
	switch {
	case d.IsPositive():
		return VarianceOver
	case d.IsNegative():
		return VarianceShort
	default:
		return VarianceBalanced
	}
}

// IsCompleted reports whether the settlement reached its terminal state.
func (s Settlement) IsCompleted() bool {
	return s.Status == SettlementStatusCompleted
}

// Clone returns a deep copy so callers cannot alias internal slices.
func (s Settlement) Clone() Settlement {
	c := s
	c.Denominations = append([]DenominationCount(nil), s.Denominations...)
	c.Adjustments = append([]Adjustment(nil), s.Adjustments...)
	c.Transactions = append([]TransactionSummary(nil), s.Transactions...)
	c.Refunds = append([]Refund(nil), s.Refunds...)
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return c
}

// SettlementUpdate carries the fields an operator may merge into a pending
// settlement. Nil fields are left unchanged.
type SettlementUpdate struct {
	Notes *string
}

// Apply merges u into s.
func (s Settlement) Apply(u SettlementUpdate) (Settlement, error) {
	if s.IsCompleted() {
		return s, ErrSettlementCompleted
	}

	next := s.Clone()
	if u.Notes != nil {
		if err := ValidateNotes(*u.Notes); err != nil {
			return s, err
		}
		next.Notes = *u.Notes
	}

	return next, nil
}

// WithDenominationCount sets the count of one denomination. Unknown labels
// leave the settlement unchanged.
func (s Settlement) WithDenominationCount(label string, count int) (Settlement, error) {
	if s.IsCompleted() {
		return s, ErrSettlementCompleted
	}

	next := s.Clone()
	next.Denominations, _ = SetDenominationCount(s.Denominations, label, count)
	return next, nil
}

// WithAdjustment appends a validated adjustment.
func (s Settlement) WithAdjustment(a Adjustment) (Settlement, error) {
	if s.IsCompleted() {
		return s, ErrSettlementCompleted
	}

	next := s.Clone()
	next.Adjustments = append(next.Adjustments, a)
	return next, nil
}

// WithoutAdjustment removes the adjustment with the given id. Unknown ids
// leave the settlement unchanged.
func (s Settlement) WithoutAdjustment(id string) (Settlement, error) {
	if s.IsCompleted() {
		return s, ErrSettlementCompleted
	}

	next := s.Clone()
	kept := next.Adjustments[:0]
	for _, a := range next.Adjustments {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	next.Adjustments = kept
	return next, nil
}

// Complete moves the settlement to its terminal state.
func (s Settlement) Complete(at time.Time, operatorID string) (Settlement, error) {
	if s.IsCompleted() {
		return s, ErrSettlementCompleted
	}

	next := s.Clone()
	next.Status = SettlementStatusCompleted
	end := at
	next.EndTime = &end
	next.CompletedBy = operatorID
	return next, nil
}

// NetAdjustment is the informational net impact of the recorded adjustments.
func (s Settlement) NetAdjustment() decimal.Decimal {
	return NetImpact(s.Adjustments)
}

// Tenders classifies the session transactions into tender buckets.
func (s Settlement) Tenders() TenderTotals {
	return ClassifyTransactions(s.Transactions)
}
