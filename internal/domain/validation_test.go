package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateSessionID(t *testing.T) {
	t.Parallel()

	t.Run("valid id", func(t *testing.T) {
		if err := ValidateSessionID("shift-2026-10-19-T01"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		err := ValidateSessionID("   ")
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Fatalf("expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("id too long", func(t *testing.T) {
		err := ValidateSessionID(strings.Repeat("a", MaxSessionIDLength+1))
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Fatalf("expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("id with path separator", func(t *testing.T) {
		err := ValidateSessionID("a/b")
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Fatalf("expected ErrInvalidSessionID, got %v", err)
		}
	})
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	if err := ValidateAmount(decimal.NewFromFloat(5.25)); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}

	if err := ValidateAmount(decimal.NewFromInt(-3)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}

	tooLarge := decimal.RequireFromString(MaxAdjustmentAmount).Add(decimal.NewFromInt(1))
	if err := ValidateAmount(tooLarge); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestValidateReason(t *testing.T) {
	t.Parallel()

	if err := ValidateReason("cash drop"); err != nil {
		t.Fatalf("expected valid reason, got %v", err)
	}

	for _, r := range []string{"", "   ", "\t\n"} {
		if err := ValidateReason(r); !errors.Is(err, ErrInvalidReason) {
			t.Fatalf("expected ErrInvalidReason for %q, got %v", r, err)
		}
	}

	if err := ValidateReason(strings.Repeat("x", MaxReasonLength+1)); !errors.Is(err, ErrInvalidReason) {
		t.Fatalf("expected ErrInvalidReason for long reason, got %v", err)
	}
}

func TestValidateNotes(t *testing.T) {
	t.Parallel()

	if err := ValidateNotes(""); err != nil {
		t.Fatalf("expected empty notes to be valid, got %v", err)
	}

	if err := ValidateNotes(strings.Repeat("n", MaxNotesLength+1)); !errors.Is(err, ErrNotesTooLong) {
		t.Fatalf("expected ErrNotesTooLong, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset, err := ValidatePagination(0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 50 || offset != 0 {
		t.Fatalf("expected defaults 50/0, got %d/%d", limit, offset)
	}

	limit, _, _ = ValidatePagination(10000, 0)
	if limit != 500 {
		t.Fatalf("expected limit to be capped at 500, got %d", limit)
	}
}
