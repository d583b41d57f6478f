package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/usecase"
)

// AuditRepository implements audit log persistence.
type AuditRepository struct {
	db querier
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db querier) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.insert(ctx, r.db, log)
}

// CreateTx inserts an audit log entry within tx.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	sqlTx, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}
	return r.insert(ctx, sqlTx, log)
}

func (r *AuditRepository) insert(ctx context.Context, db querier, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	before, err := stateText(log.BeforeState)
	if err != nil {
		return err
	}
	after, err := stateText(log.AfterState)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO audit_logs
		(id, user_id, action, resource_type, resource_id, request_id,
		 before_state, after_state, status, error_message, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		log.ID, log.UserID, log.Action, log.ResourceType, log.ResourceID, log.RequestID,
		before, after, log.Status, log.ErrorMessage, formatTime(log.CreatedAt),
	)
	return err
}

// List retrieves audit logs with filtering.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where, args = append(where, "user_id = ?"), append(args, filter.UserID)
	}
	if filter.Action != "" {
		where, args = append(where, "action = ?"), append(args, filter.Action)
	}
	if filter.ResourceType != "" {
		where, args = append(where, "resource_type = ?"), append(args, filter.ResourceType)
	}
	if filter.ResourceID != "" {
		where, args = append(where, "resource_id = ?"), append(args, filter.ResourceID)
	}

	query := `SELECT id, user_id, action, resource_type, resource_id, request_id,
		before_state, after_state, status, error_message, created_at FROM audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*domain.AuditLog{}
	for rows.Next() {
		var (
			log           domain.AuditLog
			before, after sql.NullString
			createdAt     string
		)
		err := rows.Scan(
			&log.ID, &log.UserID, &log.Action, &log.ResourceType, &log.ResourceID, &log.RequestID,
			&before, &after, &log.Status, &log.ErrorMessage, &createdAt,
		)
		if err != nil {
			return nil, err
		}

		if before.Valid {
			_ = json.Unmarshal([]byte(before.String), &log.BeforeState)
		}
		if after.Valid {
			_ = json.Unmarshal([]byte(after.String), &log.AfterState)
		}
		if log.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// GetByResourceID retrieves all audit logs for a specific resource.
func (r *AuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	return r.List(ctx, domain.AuditFilter{ResourceType: resourceType, ResourceID: resourceID})
}

func stateText(state domain.JSON) (sql.NullString, error) {
	if state == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
