package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidSessionID = errors.New("invalid session ID")
	ErrAmountTooLarge   = errors.New("amount exceeds maximum allowed")
	ErrNotesTooLong     = errors.New("notes exceed maximum length")
)

// Validation constants
const (
	MaxSessionIDLength  = 128
	MaxReasonLength     = 500
	MaxNotesLength      = 2000
	MaxAdjustmentAmount = "1000000000" // 1 billion
)

// ValidateSessionID validates a session identifier
func ValidateSessionID(id string) error {
	id = strings.TrimSpace(id)

	if id == "" {
		return fmt.Errorf("%w: session ID cannot be empty", ErrInvalidSessionID)
	}

	if len(id) > MaxSessionIDLength {
		return fmt.Errorf("%w: session ID exceeds %d characters", ErrInvalidSessionID, MaxSessionIDLength)
	}

	if strings.ContainsAny(id, " \t\r\n/") {
		return fmt.Errorf("%w: session ID contains forbidden characters", ErrInvalidSessionID)
	}

	return nil
}

// ValidateAmount validates an adjustment amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	maxAmount := decimal.RequireFromString(MaxAdjustmentAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAdjustmentAmount)
	}

	return nil
}

// ValidateReason validates an adjustment reason
func ValidateReason(reason string) error {
	reason = strings.TrimSpace(reason)

	if reason == "" {
		return ErrInvalidReason
	}

	if len(reason) > MaxReasonLength {
		return fmt.Errorf("%w: reason exceeds %d characters", ErrInvalidReason, MaxReasonLength)
	}

	return nil
}

// ValidateNotes validates settlement notes
func ValidateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return fmt.Errorf("%w: limit is %d characters", ErrNotesTooLong, MaxNotesLength)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 500
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
