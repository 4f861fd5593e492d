package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-desk/internal/config"
	"github.com/spec-kit/exchange-desk/internal/domain"
)

func newTestSLAService(repo *fakeTicketRepo, thresholds map[domain.TicketStage]time.Duration) *SLAService {
	return NewSLAService(repo, nil, config.SLAConfig{Thresholds: thresholds}, zap.NewNop())
}

func slaThresholds() map[domain.TicketStage]time.Duration {
	return map[domain.TicketStage]time.Duration{
		domain.StageLodged:           24 * time.Hour,
		domain.StageWarehousePending: 48 * time.Hour,
	}
}

func seedTicket(repo *fakeTicketRepo, stage domain.TicketStage, createdAt time.Time) *domain.Ticket {
	ticket := &domain.Ticket{
		OrderID:       "ORD-1",
		CustomerName:  "Priya Nair",
		CustomerPhone: "9876543210",
		ReasonCode:    domain.ReasonWrongSize,
		Stage:         stage,
		Status:        domain.StatusNew,
		RefundStatus:  domain.RefundNone,
	}
	event := &domain.TicketEvent{EventType: domain.EventCreated}
	_ = repo.Create(context.Background(), ticket, event)
	repo.mu.Lock()
	repo.tickets[ticket.ID].CreatedAt = createdAt
	repo.mu.Unlock()
	ticket.CreatedAt = createdAt
	return ticket
}

func TestEvaluateEscalatesOverdueTicket(t *testing.T) {
	repo := newFakeTicketRepo()
	sla := newTestSLAService(repo, slaThresholds())

	now := time.Now()
	ticket := seedTicket(repo, domain.StageLodged, now.Add(-30*time.Hour))

	recorded, err := sla.Evaluate(context.Background(), ticket, now)
	require.NoError(t, err)
	assert.True(t, recorded)

	updated, err := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, updated.SLABreached)
	require.NotNil(t, updated.SLABreachedAt)
	assert.Equal(t, domain.StatusEscalated, updated.Status)
	assert.Equal(t, domain.StageLodged, updated.Stage, "escalation never moves the stage")

	events := repo.eventsFor(ticket.ID)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventEscalated, events[1].EventType)
}

func TestEvaluateWithinThresholdIsNoop(t *testing.T) {
	repo := newFakeTicketRepo()
	sla := newTestSLAService(repo, slaThresholds())

	now := time.Now()
	ticket := seedTicket(repo, domain.StageLodged, now.Add(-2*time.Hour))

	recorded, err := sla.Evaluate(context.Background(), ticket, now)
	require.NoError(t, err)
	assert.False(t, recorded)

	updated, _ := repo.GetByID(context.Background(), ticket.ID)
	assert.False(t, updated.SLABreached)
	assert.Equal(t, domain.StatusNew, updated.Status)
}

func TestEvaluateFirstBreachWins(t *testing.T) {
	repo := newFakeTicketRepo()
	sla := newTestSLAService(repo, slaThresholds())

	now := time.Now()
	ticket := seedTicket(repo, domain.StageLodged, now.Add(-30*time.Hour))

	recorded, err := sla.Evaluate(context.Background(), ticket, now)
	require.NoError(t, err)
	require.True(t, recorded)

	breached, err := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	recorded, err = sla.Evaluate(context.Background(), breached, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, recorded, "an already-breached ticket is left alone")

	updated, _ := repo.GetByID(context.Background(), ticket.ID)
	assert.Len(t, repo.eventsFor(updated.ID), 2, "no duplicate ESCALATED events")
}

func TestEvaluateSkipsTerminalStages(t *testing.T) {
	repo := newFakeTicketRepo()
	sla := newTestSLAService(repo, map[domain.TicketStage]time.Duration{
		domain.StageClosed:          time.Hour,
		domain.StageWarehouseDenied: time.Hour,
	})

	now := time.Now()
	for _, stage := range []domain.TicketStage{domain.StageClosed, domain.StageWarehouseDenied} {
		ticket := seedTicket(repo, stage, now.Add(-100*time.Hour))
		recorded, err := sla.Evaluate(context.Background(), ticket, now)
		require.NoError(t, err)
		assert.False(t, recorded, "terminal stage %s is exempt", stage)
	}
}

func TestEvaluateSkipsUnconfiguredStage(t *testing.T) {
	repo := newFakeTicketRepo()
	sla := newTestSLAService(repo, map[domain.TicketStage]time.Duration{})

	now := time.Now()
	ticket := seedTicket(repo, domain.StageLodged, now.Add(-100*time.Hour))
	recorded, err := sla.Evaluate(context.Background(), ticket, now)
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestEvaluateLostRaceIsNoop(t *testing.T) {
	repo := newFakeTicketRepo()
	sla := newTestSLAService(repo, slaThresholds())

	now := time.Now()
	ticket := seedTicket(repo, domain.StageLodged, now.Add(-30*time.Hour))

	// the ticket moved between the sweep's read and the escalation write
	repo.mu.Lock()
	repo.tickets[ticket.ID].Stage = domain.StageWarehousePending
	repo.mu.Unlock()

	recorded, err := sla.Evaluate(context.Background(), ticket, now)
	require.NoError(t, err, "a lost race is not an error")
	assert.False(t, recorded)

	updated, _ := repo.GetByID(context.Background(), ticket.ID)
	assert.False(t, updated.SLABreached)
}

func TestSweepEscalatesOnlyOverdueTickets(t *testing.T) {
	repo := newFakeTicketRepo()
	sla := newTestSLAService(repo, slaThresholds())

	now := time.Now()
	overdue := seedTicket(repo, domain.StageLodged, now.Add(-30*time.Hour))
	fresh := seedTicket(repo, domain.StageLodged, now.Add(-time.Hour))
	pendingOverdue := seedTicket(repo, domain.StageWarehousePending, now.Add(-72*time.Hour))

	escalated, err := sla.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, escalated)

	for id, wantBreached := range map[string]bool{
		overdue.ID:        true,
		fresh.ID:          false,
		pendingOverdue.ID: true,
	} {
		ticket, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, wantBreached, ticket.SLABreached, "ticket %s", id)
	}
}
