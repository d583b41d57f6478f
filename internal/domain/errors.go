package domain

import "errors"

var (
	// Settlement errors
	ErrSettlementNotFound         = errors.New("settlement not found")
	ErrSettlementCompleted        = errors.New("settlement is already completed")
	ErrSettlementAlreadyPersisted = errors.New("a completed settlement already exists for this session")
	ErrCompletionInProgress       = errors.New("settlement completion is in progress")
	ErrPersistenceFailed          = errors.New("failed to persist settlement")

	// Completion guard errors
	ErrCannotComplete       = errors.New("settlement cannot be completed")
	ErrCashNotCounted       = errors.New("cash has not been counted")
	ErrVarianceRequired     = errors.New("completion requires a non-zero variance")
	ErrVarianceNotBalanced  = errors.New("counted cash does not match expected cash")
	ErrVarianceNotJustified = errors.New("variance must be explained by notes or adjustments")

	// Adjustment errors
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidReason         = errors.New("reason must not be empty")
	ErrInvalidAdjustmentType = errors.New("adjustment type must be add or subtract")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
)
