package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// TicketStats holds the dashboard counters.
type TicketStats struct {
	TotalOpen         int `json:"total_open"`
	PendingWarehouse  int `json:"pending_warehouse"`
	PendingInvoicing  int `json:"pending_invoicing"`
	SLABreached       int `json:"sla_breached"`
	CompletedThisWeek int `json:"completed_this_week"`
	Denied            int `json:"denied"`
}

// StatsRepository aggregates counters for the dashboard.
type StatsRepository interface {
	TicketStats(ctx context.Context, now time.Time) (*TicketStats, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository builds repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) TicketStats(ctx context.Context, now time.Time) (*TicketStats, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE stage NOT IN ('CLOSED','WAREHOUSE_DENIED')),
            COUNT(*) FILTER (WHERE stage = 'WAREHOUSE_PENDING'),
            COUNT(*) FILTER (WHERE stage = 'INVOICING_PENDING'),
            COUNT(*) FILTER (WHERE sla_breached AND stage NOT IN ('CLOSED','WAREHOUSE_DENIED')),
            COUNT(*) FILTER (WHERE stage = 'CLOSED' AND closed_at >= $1),
            COUNT(*) FILTER (WHERE stage = 'WAREHOUSE_DENIED')
        FROM tickets`

	weekStart := now.AddDate(0, 0, -7)
	var stats TicketStats
	if err := r.pool.QueryRow(ctx, query, weekStart).Scan(
		&stats.TotalOpen,
		&stats.PendingWarehouse,
		&stats.PendingInvoicing,
		&stats.SLABreached,
		&stats.CompletedThisWeek,
		&stats.Denied,
	); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return &stats, nil
}
