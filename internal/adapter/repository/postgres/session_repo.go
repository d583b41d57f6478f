package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/tillclose/internal/domain"
)

// SessionRepository implements usecase.SessionSource over the POS tables.
// The POS writes these rows; this service only reads them.
type SessionRepository struct {
	db querier
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db querier) *SessionRepository {
	return &SessionRepository{db: db}
}

const getSession = `
	SELECT id, terminal_id, opening_balance, expected_cash, started_at
	FROM pos_sessions
	WHERE id = $1
`

// GetSession retrieves a POS session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var (
		session                      domain.Session
		openingBalance, expectedCash pgtype.Numeric
	)

	err := r.db.QueryRow(ctx, getSession, sessionID).Scan(
		&session.ID,
		&session.TerminalID,
		&openingBalance,
		&expectedCash,
		&session.StartedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	session.OpeningBalance = numericToDecimal(openingBalance)
	session.ExpectedCash = numericToDecimal(expectedCash)

	return &session, nil
}

const listTransactions = `
	SELECT id, payment_method, total, status
	FROM pos_transactions
	WHERE session_id = $1
	ORDER BY created_at, id
`

// ListTransactions retrieves the transactions recorded in a session.
func (r *SessionRepository) ListTransactions(ctx context.Context, sessionID string) ([]domain.TransactionSummary, error) {
	rows, err := r.db.Query(ctx, listTransactions, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []domain.TransactionSummary{}
	for rows.Next() {
		var (
			tx    domain.TransactionSummary
			total pgtype.Numeric
		)
		if err := rows.Scan(&tx.ID, &tx.PaymentMethod, &total, &tx.Status); err != nil {
			return nil, err
		}
		tx.Total = numericToDecimal(total)
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

const listRefunds = `
	SELECT id, amount
	FROM pos_refunds
	WHERE session_id = $1
	ORDER BY created_at, id
`

// ListRefunds retrieves the refunds issued in a session.
func (r *SessionRepository) ListRefunds(ctx context.Context, sessionID string) ([]domain.Refund, error) {
	rows, err := r.db.Query(ctx, listRefunds, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := []domain.Refund{}
	for rows.Next() {
		var (
			refund domain.Refund
			amount pgtype.Numeric
		)
		if err := rows.Scan(&refund.ID, &amount); err != nil {
			return nil, err
		}
		refund.Amount = numericToDecimal(amount)
		refunds = append(refunds, refund)
	}

	return refunds, rows.Err()
}
