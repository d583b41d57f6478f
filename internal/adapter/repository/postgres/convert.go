package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/domain"
)

// PostgreSQL error codes.
const (
	pgErrUniqueViolation      = "23505"
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgErrUniqueViolation
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// denominationRow is the JSON shape of a counted denomination on the
// settlements row.
type denominationRow struct {
	Label     string          `json:"label"`
	FaceValue decimal.Decimal `json:"face_value"`
	Count     int             `json:"count"`
	Amount    decimal.Decimal `json:"amount"`
}

func marshalDenominations(counts []domain.DenominationCount) ([]byte, error) {
	rows := make([]denominationRow, len(counts))
	for i, c := range counts {
		rows[i] = denominationRow{
			Label:     c.Label,
			FaceValue: c.FaceValue,
			Count:     c.Count,
			Amount:    c.Amount,
		}
	}
	return json.Marshal(rows)
}

func unmarshalDenominations(data []byte) ([]domain.DenominationCount, error) {
	if len(data) == 0 {
		return []domain.DenominationCount{}, nil
	}

	var rows []denominationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode denominations: %w", err)
	}

	counts := make([]domain.DenominationCount, len(rows))
	for i, r := range rows {
		counts[i] = domain.DenominationCount{
			Label:     r.Label,
			FaceValue: r.FaceValue,
			Count:     r.Count,
			Amount:    r.Amount,
		}
	}
	return counts, nil
}
