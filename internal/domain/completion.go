package domain

import (
	"fmt"
	"strings"
)

// CompletionPolicy selects how the completion guard compares counted and
// expected cash.
type CompletionPolicy string

const (
	// CompletionPolicyVarianceRequired only allows completion when counted
	// cash differs from expected cash.
	CompletionPolicyVarianceRequired CompletionPolicy = "variance_required"
	// CompletionPolicyBalanced only allows completion when the drawer balances.
	CompletionPolicyBalanced CompletionPolicy = "balanced"
	// CompletionPolicyJustified allows a balanced drawer, or a variance that
	// is explained by notes or at least one adjustment.
	CompletionPolicyJustified CompletionPolicy = "justified"
)

// DefaultCompletionPolicy is used when none is configured.
const DefaultCompletionPolicy = CompletionPolicyJustified

// ParseCompletionPolicy parses a configured policy name.
func ParseCompletionPolicy(s string) (CompletionPolicy, error) {
	switch p := CompletionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case CompletionPolicyVarianceRequired, CompletionPolicyBalanced, CompletionPolicyJustified:
		return p, nil
	case "":
		return DefaultCompletionPolicy, nil
	default:
		return "", fmt.Errorf("unknown completion policy %q", s)
	}
}

// Check returns nil when s may be completed under p, or an error wrapping
// ErrCannotComplete that names the failed condition.
func (p CompletionPolicy) Check(s Settlement) error {
	if s.IsCompleted() {
		return ErrSettlementCompleted
	}

	if !s.ActualCash().IsPositive() {
		return fmt.Errorf("%w: %w", ErrCannotComplete, ErrCashNotCounted)
	}

	balanced := s.Difference().IsZero()

	switch p {
	case CompletionPolicyVarianceRequired:
		if balanced {
			return fmt.Errorf("%w: %w", ErrCannotComplete, ErrVarianceRequired)
		}
	case CompletionPolicyBalanced:
		if !balanced {
			return fmt.Errorf("%w: %w", ErrCannotComplete, ErrVarianceNotBalanced)
		}
	default:
		if !balanced && strings.TrimSpace(s.Notes) == "" && len(s.Adjustments) == 0 {
			return fmt.Errorf("%w: %w", ErrCannotComplete, ErrVarianceNotJustified)
		}
	}

	return nil
}

// CanComplete is the completion guard: the policy must accept s and no
// completion may already be in flight.
func CanComplete(p CompletionPolicy, s Settlement, inFlight bool) bool {
	return !inFlight && p.Check(s) == nil
}
