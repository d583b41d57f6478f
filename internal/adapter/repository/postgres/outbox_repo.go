package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

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

const insertOutboxEvent = `
	INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, payload, created_at, published)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Create creates a new outbox event within a transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, insertOutboxEvent,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		payload,
		timeToPgTimestamptz(event.CreatedAt),
		event.Published,
	)

	return err
}

const selectOutboxColumns = `
	SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at, published
	FROM outbox_events
`

// GetUnpublished retrieves unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.Query(ctx,
		selectOutboxColumns+` WHERE NOT published ORDER BY created_at, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return collectOutboxEvents(rows)
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_events SET published = TRUE, published_at = $2 WHERE id = $1`,
		id, timeToPgTimestamptz(publishedAt),
	)
	return err
}

// GetByAggregate retrieves events for a specific aggregate.
func (r *OutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.Query(ctx,
		selectOutboxColumns+` WHERE aggregate_type = $1 AND aggregate_id = $2 ORDER BY created_at, id LIMIT $3 OFFSET $4`,
		aggregateType, aggregateID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return collectOutboxEvents(rows)
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM outbox_events WHERE published AND published_at < $1`,
		timeToPgTimestamptz(before),
	)
	return err
}

func collectOutboxEvents(rows pgx.Rows) ([]*domain.OutboxEvent, error) {
	defer rows.Close()

	events := []*domain.OutboxEvent{}
	for rows.Next() {
		var (
			event       domain.OutboxEvent
			payload     []byte
			publishedAt pgtype.Timestamptz
		)
		err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.AggregateType,
			&event.EventType,
			&payload,
			&event.CreatedAt,
			&publishedAt,
			&event.Published,
		)
		if err != nil {
			return nil, err
		}

		if payload != nil {
			_ = json.Unmarshal(payload, &event.Payload)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			event.PublishedAt = &t
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
