package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidDenominationSet = errors.New("invalid denomination set")

// Denomination is a currency face value identified by its display label.
type Denomination struct {
	Label     string
	FaceValue decimal.Decimal
}

// DenominationSet is an ordered, validated collection of face values.
type DenominationSet struct {
	items []Denomination
}

// NewDenominationSet validates items and keeps them in the given order.
func NewDenominationSet(items []Denomination) (DenominationSet, error) {
	if len(items) == 0 {
		return DenominationSet{}, fmt.Errorf("%w: at least one denomination is required", ErrInvalidDenominationSet)
	}

	seen := make(map[string]bool, len(items))
	out := make([]Denomination, 0, len(items))
	for _, d := range items {
		label := strings.TrimSpace(d.Label)
		if label == "" {
			return DenominationSet{}, fmt.Errorf("%w: label cannot be empty", ErrInvalidDenominationSet)
		}
		if seen[label] {
			return DenominationSet{}, fmt.Errorf("%w: duplicate label %q", ErrInvalidDenominationSet, label)
		}
		if !d.FaceValue.IsPositive() {
			return DenominationSet{}, fmt.Errorf("%w: face value of %q must be positive", ErrInvalidDenominationSet, label)
		}
		seen[label] = true
		out = append(out, Denomination{Label: label, FaceValue: d.FaceValue})
	}

	return DenominationSet{items: out}, nil
}

// DefaultDenominationSet is used when no denomination file is configured.
func DefaultDenominationSet() DenominationSet {
	labels := []string{"2000", "500", "200", "100", "50", "20", "10", "5", "2", "1", "0.50"}
	items := make([]Denomination, len(labels))
	for i, l := range labels {
		items[i] = Denomination{Label: l, FaceValue: decimal.RequireFromString(l)}
	}
	return DenominationSet{items: items}
}

// Items returns a copy of the denominations in display order.
func (ds DenominationSet) Items() []Denomination {
	out := make([]Denomination, len(ds.items))
	copy(out, ds.items)
	return out
}

// Len returns the number of denominations.
func (ds DenominationSet) Len() int {
	return len(ds.items)
}

// EmptyCounts returns a zeroed count row for every denomination.
func (ds DenominationSet) EmptyCounts() []DenominationCount {
	counts := make([]DenominationCount, len(ds.items))
	for i, d := range ds.items {
		counts[i] = DenominationCount{
			Label:     d.Label,
			FaceValue: d.FaceValue,
			Amount:    decimal.Zero,
		}
	}
	return counts
}

// DenominationCount is the counted quantity of one denomination.
// Amount is always Count × FaceValue.
type DenominationCount struct {
	Label     string
	FaceValue decimal.Decimal
	Count     int
	Amount    decimal.Decimal
}

// SetDenominationCount returns a copy of counts with label's count replaced.
// Negative counts clamp to zero. The second result is false when label is
// not part of counts, in which case the copy is unchanged.
func SetDenominationCount(counts []DenominationCount, label string, count int) ([]DenominationCount, bool) {
	out := make([]DenominationCount, len(counts))
	copy(out, counts)

	if count < 0 {
		count = 0
	}

	for i := range out {
		if out[i].Label != label {
			continue
		}
		out[i].Count = count
		out[i].Amount = out[i].FaceValue.Mul(decimal.NewFromInt(int64(count)))
		return out, true
	}

	return out, false
}

// TotalCounted sums the amount of every denomination.
func TotalCounted(counts []DenominationCount) decimal.Decimal {
	total := decimal.Zero
	for _, c := range counts {
		total = total.Add(c.Amount)
	}
	return total
}
