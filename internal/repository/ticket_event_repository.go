package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/exchange-desk/internal/domain"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// TicketEventRepository reads the append-only audit trail. Writes happen
// inside the ticket repository's transactions; Append exists for callers that
// record an event without a state change.
type TicketEventRepository interface {
	Append(ctx context.Context, event *domain.TicketEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error)
}

type ticketEventRepository struct {
	pool *pgxpool.Pool
}

// NewTicketEventRepository builds repository.
func NewTicketEventRepository(pool *pgxpool.Pool) TicketEventRepository {
	return &ticketEventRepository{pool: pool}
}

func (r *ticketEventRepository) Append(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (ticket_id, event_type, event_by_id, event_payload)
        VALUES ($1,$2,$3,$4)
        RETURNING id, event_at`
	err := r.pool.QueryRow(ctx, query,
		event.TicketID,
		event.EventType,
		event.EventByID,
		event.EventPayload,
	).Scan(&event.ID, &event.EventAt)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

func (r *ticketEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error) {
	const query = `
        SELECT id, ticket_id, event_type, event_by_id, event_at, event_payload
        FROM ticket_events WHERE ticket_id=$1 ORDER BY event_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.EventType,
			&event.EventByID,
			&event.EventAt,
			&event.EventPayload,
		); err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return result, nil
}
