package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

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

type denominationRow struct {
	Label     string          `json:"label"`
	FaceValue decimal.Decimal `json:"face_value"`
	Count     int             `json:"count"`
	Amount    decimal.Decimal `json:"amount"`
}

// Create persists a completed settlement and its adjustments within tx.
func (r *SettlementRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	sqlTx, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}

	if s.EndTime == nil {
		return fmt.Errorf("settlement %s has no end time", s.ID)
	}

	rows := make([]denominationRow, len(s.Denominations))
	for i, c := range s.Denominations {
		rows[i] = denominationRow{Label: c.Label, FaceValue: c.FaceValue, Count: c.Count, Amount: c.Amount}
	}
	denominations, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO settlements
		(id, session_id, opening_balance, expected_cash, actual_cash, difference,
		 denominations, notes, status, start_time, end_time, completed_by)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.SessionID,
		decimalText(s.OpeningBalance), decimalText(s.ExpectedCash),
		decimalText(s.ActualCash()), decimalText(s.Difference()),
		string(denominations), s.Notes, string(s.Status),
		formatTime(s.StartTime), formatTime(*s.EndTime), s.CompletedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSettlementAlreadyPersisted
		}
		return err
	}

	if len(s.Adjustments) == 0 {
		return nil
	}

	stmt, err := sqlTx.PrepareContext(ctx,
		`INSERT INTO settlement_adjustments
		(id, settlement_id, position, type, amount, reason, created_at)
		VALUES (?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, adj := range s.Adjustments {
		_, err := stmt.ExecContext(ctx,
			adj.ID, s.ID, i, string(adj.Type), decimalText(adj.Amount), adj.Reason, formatTime(adj.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("insert adjustment %s: %w", adj.ID, err)
		}
	}

	return nil
}

const selectSettlementColumns = `SELECT id, session_id, opening_balance, expected_cash, denominations,
	notes, status, start_time, end_time, completed_by FROM settlements`

// GetBySessionID retrieves the completed settlement of a session together
// with its adjustments and the session's transactions and refunds.
func (r *SettlementRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	s, err := scanSettlement(r.db.QueryRowContext(ctx, selectSettlementColumns+` WHERE session_id = ?`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settlements`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// List retrieves completed settlements, most recently completed first.
// Transactions and refunds are not loaded.
func (r *SettlementRepository) List(ctx context.Context, limit, offset int) ([]*domain.Settlement, error) {
	rows, err := r.db.QueryContext(ctx,
		selectSettlementColumns+` ORDER BY end_time DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}

	settlements := []*domain.Settlement{}
	ids := []string{}
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		settlements = append(settlements, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the connection before the adjustment query.
	rows.Close()

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

func (r *SettlementRepository) adjustmentsFor(ctx context.Context, settlementIDs []string) (map[string][]domain.Adjustment, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(settlementIDs)), ",")
	args := make([]any, len(settlementIDs))
	for i, id := range settlementIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, settlement_id, type, amount, reason, created_at
		FROM settlement_adjustments
		WHERE settlement_id IN (`+placeholders+`)
		ORDER BY settlement_id, position`,
		args...,
	)
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
			createdAt    string
		)
		if err := rows.Scan(&adj.ID, &settlementID, &typ, &adj.Amount, &adj.Reason, &createdAt); err != nil {
			return nil, err
		}
		if adj.Timestamp, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		adj.Type = domain.AdjustmentType(typ)
		out[settlementID] = append(out[settlementID], adj)
	}

	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row scanner) (*domain.Settlement, error) {
	var (
		s                  domain.Settlement
		denominations      string
		status             string
		startTime, endTime string
	)

	err := row.Scan(
		&s.ID,
		&s.SessionID,
		&s.OpeningBalance,
		&s.ExpectedCash,
		&denominations,
		&s.Notes,
		&status,
		&startTime,
		&endTime,
		&s.CompletedBy,
	)
	if err != nil {
		return nil, err
	}

	var rows []denominationRow
	if err := json.Unmarshal([]byte(denominations), &rows); err != nil {
		return nil, fmt.Errorf("decode denominations: %w", err)
	}
	s.Denominations = make([]domain.DenominationCount, len(rows))
	for i, r := range rows {
		s.Denominations[i] = domain.DenominationCount{Label: r.Label, FaceValue: r.FaceValue, Count: r.Count, Amount: r.Amount}
	}

	if s.StartTime, err = parseTime(startTime); err != nil {
		return nil, err
	}
	end, err := parseTime(endTime)
	if err != nil {
		return nil, err
	}

	s.EndTime = &end
	s.Status = domain.SettlementStatus(status)
	s.Adjustments = []domain.Adjustment{}
	s.Transactions = []domain.TransactionSummary{}
	s.Refunds = []domain.Refund{}

	return &s, nil
}
