package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	db querier
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db querier) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create creates a new outbox event within a transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	sqlTx, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO outbox_events
		(id, aggregate_id, aggregate_type, event_type, payload, created_at, published)
		VALUES (?,?,?,?,?,?,?)`,
		event.ID, event.AggregateID, event.AggregateType, event.EventType,
		string(payload), formatTime(event.CreatedAt), event.Published,
	)
	return err
}

const selectOutboxColumns = `SELECT id, aggregate_id, aggregate_type, event_type, payload,
	created_at, published_at, published FROM outbox_events`

// GetUnpublished retrieves unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		selectOutboxColumns+` WHERE published = 0 ORDER BY created_at, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectOutboxEvents(rows)
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET published = 1, published_at = ? WHERE id = ?`,
		formatTime(publishedAt), id,
	)
	return err
}

// GetByAggregate retrieves events for a specific aggregate.
func (r *OutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		selectOutboxColumns+` WHERE aggregate_type = ? AND aggregate_id = ?
		ORDER BY created_at, id LIMIT ? OFFSET ?`,
		aggregateType, aggregateID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return collectOutboxEvents(rows)
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox_events WHERE published = 1 AND published_at < ?`,
		formatTime(before),
	)
	return err
}

func collectOutboxEvents(rows *sql.Rows) ([]*domain.OutboxEvent, error) {
	defer rows.Close()

	events := []*domain.OutboxEvent{}
	for rows.Next() {
		var (
			event       domain.OutboxEvent
			payload     string
			createdAt   string
			publishedAt sql.NullString
		)
		err := rows.Scan(
			&event.ID, &event.AggregateID, &event.AggregateType, &event.EventType,
			&payload, &createdAt, &publishedAt, &event.Published,
		)
		if err != nil {
			return nil, err
		}

		_ = json.Unmarshal([]byte(payload), &event.Payload)
		if event.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if publishedAt.Valid {
			t, err := parseTime(publishedAt.String)
			if err != nil {
				return nil, err
			}
			event.PublishedAt = &t
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
