package domain

import (
	"context"
	"errors"
)

// Operator is the authenticated person driving a settlement workflow.
// Operators are issued by the external identity service; this service only
// reads them from verified tokens.
type Operator struct {
	ID   string
	Name string
	Role Role
}

// Role represents an operator's access level
type Role string

const (
	// RoleSupervisor can do everything a cashier can and complete settlements
	RoleSupervisor Role = "supervisor"

	// RoleCashier can count cash, record adjustments and complete their own settlement
	RoleCashier Role = "cashier"

	// RoleViewer can only view settlements
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleSupervisor: true,
	RoleCashier:    true,
	RoleViewer:     true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanMutate checks if the role can change a settlement
func (r Role) CanMutate() bool {
	return r == RoleSupervisor || r == RoleCashier
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

type operatorKey struct{}

// WithOperator returns a context carrying op.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext returns the operator stored by WithOperator.
func OperatorFromContext(ctx context.Context) (*Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(*Operator)
	return op, ok && op != nil
}

// OperatorID returns the operator id in ctx, or "system" when absent.
func OperatorID(ctx context.Context) string {
	if op, ok := OperatorFromContext(ctx); ok && op.ID != "" {
		return op.ID
	}
	return "system"
}
