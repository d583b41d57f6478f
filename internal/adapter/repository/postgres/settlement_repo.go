package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/usecase"
)

// SettlementRepository implements usecase.SettlementRepository.
type SettlementRepository struct {
	db       querier
	sessions *SessionRepository
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(db querier) *SettlementRepository {
	return &SettlementRepository{
		db:       db,
		sessions: NewSessionRepository(db),
	}
}

const insertSettlement = `
	INSERT INTO settlements (
		id, session_id, opening_balance, expected_cash, actual_cash, difference,
		denominations, notes, status, start_time, end_time, completed_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const insertAdjustment = `
	INSERT INTO settlement_adjustments (id, settlement_id, position, type, amount, reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Create persists a completed settlement and its adjustments within tx.
func (r *SettlementRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	if s.EndTime == nil {
		return fmt.Errorf("settlement %s has no end time", s.ID)
	}

	denominations, err := marshalDenominations(s.Denominations)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, insertSettlement,
		s.ID,
		s.SessionID,
		decimalToNumeric(s.OpeningBalance),
		decimalToNumeric(s.ExpectedCash),
		decimalToNumeric(s.ActualCash()),
		decimalToNumeric(s.Difference()),
		denominations,
		s.Notes,
		string(s.Status),
		timeToPgTimestamptz(s.StartTime),
		timeToPgTimestamptz(*s.EndTime),
		s.CompletedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSettlementAlreadyPersisted
		}
		return err
	}

	for i, adj := range s.Adjustments {
		_, err := pgxTx.Exec(ctx, insertAdjustment,
			adj.ID,
			s.ID,
			i,
			string(adj.Type),
			decimalToNumeric(adj.Amount),
			adj.Reason,
			timeToPgTimestamptz(adj.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("insert adjustment %s: %w", adj.ID, err)
		}
	}

	return nil
}

const selectSettlementColumns = `
	SELECT id, session_id, opening_balance, expected_cash, denominations,
	       notes, status, start_time, end_time, completed_by
	FROM settlements
`

// GetBySessionID retrieves the completed settlement of a session together
// with its adjustments and the session's transactions and refunds.
func (r *SettlementRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	s, err := scanSettlement(r.db.QueryRow(ctx, selectSettlementColumns+` WHERE session_id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettlementNotFound
		}
		return nil, err
	}

	adjustments, err := r.adjustmentsFor(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.Adjustments = adjustments[s.ID]

	if s.Transactions, err = r.sessions.ListTransactions(ctx, sessionID); err != nil {
		return nil, err
	}
	if s.Refunds, err = r.sessions.ListRefunds(ctx, sessionID); err != nil {
		return nil, err
	}

	return s, nil
}

// Count returns the number of completed settlements.
func (r *SettlementRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM settlements`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// List retrieves completed settlements, most recently completed first.
// Transactions and refunds are not loaded.
func (r *SettlementRepository) List(ctx context.Context, limit, offset int) ([]*domain.Settlement, error) {
	rows, err := r.db.Query(ctx,
		selectSettlementColumns+` ORDER BY end_time DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settlements := []*domain.Settlement{}
	ids := []string{}
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return settlements, nil
	}

	adjustments, err := r.adjustmentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range settlements {
		s.Adjustments = adjustments[s.ID]
	}

	return settlements, nil
}

const selectAdjustments = `
	SELECT id, settlement_id, type, amount, reason, created_at
	FROM settlement_adjustments
	WHERE settlement_id = ANY($1)
	ORDER BY settlement_id, position
`

func (r *SettlementRepository) adjustmentsFor(ctx context.Context, settlementIDs []string) (map[string][]domain.Adjustment, error) {
	rows, err := r.db.Query(ctx, selectAdjustments, settlementIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Adjustment, len(settlementIDs))
	for _, id := range settlementIDs {
		out[id] = []domain.Adjustment{}
	}

	for rows.Next() {
		var (
			adj          domain.Adjustment
			settlementID string
			typ          string
			amount       pgtype.Numeric
		)
		if err := rows.Scan(&adj.ID, &settlementID, &typ, &amount, &adj.Reason, &adj.Timestamp); err != nil {
			return nil, err
		}
		adj.Type = domain.AdjustmentType(typ)
		adj.Amount = numericToDecimal(amount)
		out[settlementID] = append(out[settlementID], adj)
	}

	return out, rows.Err()
}

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var (
		s                            domain.Settlement
		openingBalance, expectedCash pgtype.Numeric
		denominations                []byte
		status                       string
		endTime                      time.Time
	)

	err := row.Scan(
		&s.ID,
		&s.SessionID,
		&openingBalance,
		&expectedCash,
		&denominations,
		&s.Notes,
		&status,
		&s.StartTime,
		&endTime,
		&s.CompletedBy,
	)
	if err != nil {
		return nil, err
	}

	counts, err := unmarshalDenominations(denominations)
	if err != nil {
		return nil, err
	}

	s.OpeningBalance = numericToDecimal(openingBalance)
	s.ExpectedCash = numericToDecimal(expectedCash)
	s.Denominations = counts
	s.Status = domain.SettlementStatus(status)
	s.EndTime = &endTime
	s.Adjustments = []domain.Adjustment{}
	s.Transactions = []domain.TransactionSummary{}
	s.Refunds = []domain.Refund{}

	return &s, nil
}
