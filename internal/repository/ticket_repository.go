package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/exchange-desk/internal/domain"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// TicketFilter captures list/search parameters.
type TicketFilter struct {
	Stages      []domain.TicketStage
	Statuses    []domain.TicketStatus
	SLABreached *bool
	Search      *string
	Limit       int
	Offset      int
}

// TicketMutation is the set of fields a transition may change. Nil fields are
// left untouched. Milestone timestamps are stamped by the engine, never here.
type TicketMutation struct {
	Stage        *domain.TicketStage
	Status       *domain.TicketStatus
	AssignedTeam *string
	ReturnAWB    *string
	ExchangeAWB  *string

	RefundAmount    *float64
	RefundStatus    *domain.RefundStatus
	AmountCollected *float64

	SLABreached   *bool
	SLABreachedAt *time.Time

	WarehouseReceivedAt *time.Time
	WarehouseApprovedAt *time.Time
	WarehouseDeniedAt   *time.Time
	ExchangeCompletedAt *time.Time
	SentToInvoicingAt   *time.Time
	InvoicingDoneAt     *time.Time
	RefundSentAt        *time.Time
	ClosedAt            *time.Time
}

// TicketRepository encapsulates ticket persistence. ApplyTransition is the
// only write path after creation: it performs the conditional state update and
// the audit event insert as one atomic unit.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, event *domain.TicketEvent) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ApplyTransition(ctx context.Context, ticketID string, expectedStage domain.TicketStage, mutation TicketMutation, event *domain.TicketEvent) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, order_id, customer_name, customer_phone, student_name, student_grade,
               student_section, school_name, reason_code, reason_notes, stage, status,
               return_items, exchange_items, notes, return_awb, exchange_awb,
               sla_breached, sla_breached_at, assigned_team, created_by_id,
               refund_amount, refund_status, amount_collected,
               created_at, lodged_at, warehouse_received_at, warehouse_approved_at,
               warehouse_denied_at, exchange_completed_at, sent_to_invoicing_at,
               invoicing_done_at, refund_sent_at, closed_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, event *domain.TicketEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (order_id, customer_name, customer_phone, student_name, student_grade,
            student_section, school_name, reason_code, reason_notes, stage, status,
            return_items, exchange_items, notes, assigned_team, created_by_id, refund_status, lodged_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NOW())
        RETURNING id, created_at, lodged_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.OrderID,
		ticket.CustomerName,
		ticket.CustomerPhone,
		ticket.StudentName,
		ticket.StudentGrade,
		ticket.StudentSection,
		ticket.SchoolName,
		ticket.ReasonCode,
		ticket.ReasonNotes,
		ticket.Stage,
		ticket.Status,
		ticket.ReturnItems,
		ticket.ExchangeItems,
		ticket.Notes,
		ticket.AssignedTeam,
		ticket.CreatedByID,
		ticket.RefundStatus,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.LodgedAt, &ticket.UpdatedAt); err != nil {
		return apperrors.NewPersistenceError(err)
	}

	event.TicketID = ticket.ID
	if err := insertEvent(ctx, tx, event); err != nil {
		return apperrors.NewPersistenceError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Stages) > 0 {
		placeholders := make([]string, len(filter.Stages))
		for i, stage := range filter.Stages {
			args = append(args, stage)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("stage IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SLABreached != nil {
		args = append(args, *filter.SLABreached)
		clauses = append(clauses, fmt.Sprintf("sla_breached=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(order_id) LIKE %s OR LOWER(customer_name) LIKE %s OR LOWER(customer_phone) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ApplyTransition updates the ticket conditionally on its expected stage and
// appends the audit event in the same transaction, so a lost race surfaces as
// a conflict with no partial write.
func (r *ticketRepository) ApplyTransition(ctx context.Context, ticketID string, expectedStage domain.TicketStage, mutation TicketMutation, event *domain.TicketEvent) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sets := []string{"updated_at=NOW()"}
	args := []any{ticketID, expectedStage}

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if mutation.Stage != nil {
		addSet("stage", *mutation.Stage)
	}
	if mutation.Status != nil {
		addSet("status", *mutation.Status)
	}
	if mutation.AssignedTeam != nil {
		addSet("assigned_team", *mutation.AssignedTeam)
	}
	if mutation.ReturnAWB != nil {
		addSet("return_awb", *mutation.ReturnAWB)
	}
	if mutation.ExchangeAWB != nil {
		addSet("exchange_awb", *mutation.ExchangeAWB)
	}
	if mutation.RefundAmount != nil {
		addSet("refund_amount", *mutation.RefundAmount)
	}
	if mutation.RefundStatus != nil {
		addSet("refund_status", *mutation.RefundStatus)
	}
	if mutation.AmountCollected != nil {
		addSet("amount_collected", *mutation.AmountCollected)
	}
	if mutation.SLABreached != nil {
		addSet("sla_breached", *mutation.SLABreached)
	}
	if mutation.SLABreachedAt != nil {
		addSet("sla_breached_at", *mutation.SLABreachedAt)
	}
	if mutation.WarehouseReceivedAt != nil {
		addSet("warehouse_received_at", *mutation.WarehouseReceivedAt)
	}
	if mutation.WarehouseApprovedAt != nil {
		addSet("warehouse_approved_at", *mutation.WarehouseApprovedAt)
	}
	if mutation.WarehouseDeniedAt != nil {
		addSet("warehouse_denied_at", *mutation.WarehouseDeniedAt)
	}
	if mutation.ExchangeCompletedAt != nil {
		addSet("exchange_completed_at", *mutation.ExchangeCompletedAt)
	}
	if mutation.SentToInvoicingAt != nil {
		addSet("sent_to_invoicing_at", *mutation.SentToInvoicingAt)
	}
	if mutation.InvoicingDoneAt != nil {
		addSet("invoicing_done_at", *mutation.InvoicingDoneAt)
	}
	if mutation.RefundSentAt != nil {
		addSet("refund_sent_at", *mutation.RefundSentAt)
	}
	if mutation.ClosedAt != nil {
		addSet("closed_at", *mutation.ClosedAt)
	}

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$1 AND stage=$2 RETURNING %s`,
		strings.Join(sets, ", "), ticketColumns)

	ticket, err := scanTicket(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMissedUpdate(ctx, ticketID)
		}
		return nil, apperrors.NewPersistenceError(err)
	}

	event.TicketID = ticketID
	if err := insertEvent(ctx, tx, event); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return ticket, nil
}

// classifyMissedUpdate distinguishes a lost optimistic race from a missing
// ticket after a conditional update matched no row.
func (r *ticketRepository) classifyMissedUpdate(ctx context.Context, ticketID string) error {
	var stage domain.TicketStage
	err := r.pool.QueryRow(ctx, `SELECT stage FROM tickets WHERE id=$1`, ticketID).Scan(&stage)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return apperrors.NewConcurrencyConflict(ticketID)
}

func insertEvent(ctx context.Context, tx pgx.Tx, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (ticket_id, event_type, event_by_id, event_payload)
        VALUES ($1,$2,$3,$4)
        RETURNING id, event_at`
	return tx.QueryRow(ctx, query,
		event.TicketID,
		event.EventType,
		event.EventByID,
		event.EventPayload,
	).Scan(&event.ID, &event.EventAt)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OrderID,
		&ticket.CustomerName,
		&ticket.CustomerPhone,
		&ticket.StudentName,
		&ticket.StudentGrade,
		&ticket.StudentSection,
		&ticket.SchoolName,
		&ticket.ReasonCode,
		&ticket.ReasonNotes,
		&ticket.Stage,
		&ticket.Status,
		&ticket.ReturnItems,
		&ticket.ExchangeItems,
		&ticket.Notes,
		&ticket.ReturnAWB,
		&ticket.ExchangeAWB,
		&ticket.SLABreached,
		&ticket.SLABreachedAt,
		&ticket.AssignedTeam,
		&ticket.CreatedByID,
		&ticket.RefundAmount,
		&ticket.RefundStatus,
		&ticket.AmountCollected,
		&ticket.CreatedAt,
		&ticket.LodgedAt,
		&ticket.WarehouseReceivedAt,
		&ticket.WarehouseApprovedAt,
		&ticket.WarehouseDeniedAt,
		&ticket.ExchangeCompletedAt,
		&ticket.SentToInvoicingAt,
		&ticket.InvoicingDoneAt,
		&ticket.RefundSentAt,
		&ticket.ClosedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return result, nil
}
