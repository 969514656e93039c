package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository/base"
)

type OutboxRepository struct {
	*base.Repository
}

func NewOutboxRepository(db base.Querier) *OutboxRepository {
	return &OutboxRepository{Repository: base.NewRepository(db)}
}

func (r *OutboxRepository) Insert(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		event.EventID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		event.Payload,
	).Scan(&event.ID, &event.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return nil
}

// FetchUnpublished locks up to limit unpublished events. Rows held by another
// relay are skipped so several instances can drain the table side by side.
func (r *OutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished outbox events: %w", err)
	}
	defer rows.Close()

	var events []*model.OutboxEvent
	for rows.Next() {
		var e model.OutboxEvent
		if err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.AggregateType,
			&e.AggregateID,
			&e.EventType,
			&e.Payload,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.ExecAffected(ctx, `UPDATE outbox_events SET published_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}
