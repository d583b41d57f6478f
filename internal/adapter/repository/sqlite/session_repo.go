package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/domain"
)

// SessionRepository implements usecase.SessionSource over the local POS tables.
type SessionRepository struct {
	db querier
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db querier) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetSession retrieves a POS session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var (
		session   domain.Session
		startedAt string
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT id, terminal_id, opening_balance, expected_cash, started_at
		FROM pos_sessions WHERE id = ?`, sessionID,
	).Scan(&session.ID, &session.TerminalID, &session.OpeningBalance, &session.ExpectedCash, &startedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}

	return &session, nil
}

// ListTransactions retrieves the transactions recorded in a session.
func (r *SessionRepository) ListTransactions(ctx context.Context, sessionID string) ([]domain.TransactionSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, payment_method, total, status
		FROM pos_transactions WHERE session_id = ?
		ORDER BY created_at, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []domain.TransactionSummary{}
	for rows.Next() {
		var tx domain.TransactionSummary
		if err := rows.Scan(&tx.ID, &tx.PaymentMethod, &tx.Total, &tx.Status); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// ListRefunds retrieves the refunds issued in a session.
func (r *SessionRepository) ListRefunds(ctx context.Context, sessionID string) ([]domain.Refund, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount FROM pos_refunds WHERE session_id = ?
		ORDER BY created_at, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := []domain.Refund{}
	for rows.Next() {
		var refund domain.Refund
		if err := rows.Scan(&refund.ID, &refund.Amount); err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}

	return refunds, rows.Err()
}

// decimalText stores amounts as exact decimal strings.
func decimalText(d decimal.Decimal) string {
	return d.String()
}
