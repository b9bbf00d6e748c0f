package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"rental-escrow-backend/internal/domain"
)

type eventRepository struct {
	q queryer
	d Dialect
}

func (r *eventRepository) Append(ctx context.Context, e *domain.EscrowEvent) error {
	attrs := e.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	payload, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode event attributes: %w", err)
	}
	query := r.d.Rebind(`INSERT INTO escrow_events (escrow_id, type, actor, attributes, created_at)
	          VALUES (?, ?, ?, ?, ?) RETURNING id`)
	return r.q.QueryRowContext(ctx, query, e.EscrowID, string(e.Type), e.Actor, string(payload), toMillis(e.CreatedAt)).Scan(&e.ID)
}

func (r *eventRepository) ListByEscrow(ctx context.Context, escrowID int64) ([]domain.EscrowEvent, error) {
	query := r.d.Rebind(`SELECT id, escrow_id, type, actor, attributes, created_at
	          FROM escrow_events WHERE escrow_id = ? ORDER BY id`)
	rows, err := r.q.QueryContext(ctx, query, escrowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.EscrowEvent
	for rows.Next() {
		var (
			e         domain.EscrowEvent
			eventType string
			payload   string
			created   int64
		)
		if err := rows.Scan(&e.ID, &e.EscrowID, &eventType, &e.Actor, &payload, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Attributes); err != nil {
			return nil, fmt.Errorf("decode event %d attributes: %w", e.ID, err)
		}
		e.Type = domain.EventType(eventType)
		e.CreatedAt = fromMillis(created)
		events = append(events, e)
	}
	return events, rows.Err()
}
