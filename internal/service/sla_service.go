package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/exchange-desk/internal/config"
	"github.com/spec-kit/exchange-desk/internal/domain"
	"github.com/spec-kit/exchange-desk/internal/events"
	"github.com/spec-kit/exchange-desk/internal/observability"
	"github.com/spec-kit/exchange-desk/internal/repository"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// SLAService flags tickets that have outstayed their current stage. Breach is
// advisory: it never blocks transitions and is never cleared by the monitor.
type SLAService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	thresholds map[domain.TicketStage]time.Duration
	logger     *zap.Logger
}

// NewSLAService constructs the monitor.
func NewSLAService(tickets repository.TicketRepository, dispatcher events.Dispatcher, cfg config.SLAConfig, logger *zap.Logger) *SLAService {
	return &SLAService{
		tickets:    tickets,
		dispatcher: dispatcher,
		thresholds: cfg.Thresholds,
		logger:     logger,
	}
}

// Evaluate checks a single ticket and escalates it if its dwell time exceeds
// the stage threshold. First breach wins: an already-breached ticket is left
// alone. Returns true when this call recorded the breach.
func (s *SLAService) Evaluate(ctx context.Context, ticket *domain.Ticket, now time.Time) (bool, error) {
	if ticket.SLABreached || ticket.Stage.IsTerminal() {
		return false, nil
	}
	threshold, ok := s.thresholds[ticket.Stage]
	if !ok {
		return false, nil
	}
	enteredAt := ticket.StageEnteredAt()
	if now.Sub(enteredAt) <= threshold {
		return false, nil
	}

	breached := true
	escalated := domain.StatusEscalated
	mutation := repository.TicketMutation{
		Status:        &escalated,
		SLABreached:   &breached,
		SLABreachedAt: &now,
	}
	event := &domain.TicketEvent{
		EventType: domain.EventEscalated,
		EventPayload: map[string]any{
			"stage":      ticket.Stage,
			"entered_at": enteredAt,
			"threshold":  threshold.String(),
		},
	}

	if _, err := s.tickets.ApplyTransition(ctx, ticket.ID, ticket.Stage, mutation, event); err != nil {
		// a concurrent transition moved the ticket; it will be
		// re-evaluated in its new stage on the next pass
		if apperrors.IsCode(err, apperrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}

	observability.SLABreachesTotal.Inc()
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      domain.EventEscalated,
			TicketID:  ticket.ID,
			Timestamp: now,
			Payload: events.SLABreachPayload{
				Stage:      ticket.Stage,
				EnteredAt:  enteredAt,
				BreachedAt: now,
			},
		})
	}
	return true, nil
}

// Sweep evaluates every open ticket. Individual failures are logged and do
// not stop the pass.
func (s *SLAService) Sweep(ctx context.Context, now time.Time) (int, error) {
	openStages := []domain.TicketStage{
		domain.StageLodged,
		domain.StageWarehousePending,
		domain.StageWarehouseApproved,
		domain.StageExchangeCompleted,
		domain.StageInvoicingPending,
		domain.StageInvoiced,
		domain.StageToBeRefunded,
	}
	notBreached := false
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Stages:      openStages,
		SLABreached: &notBreached,
		Limit:       1000,
	})
	if err != nil {
		return 0, err
	}

	escalations := 0
	for i := range tickets {
		recorded, err := s.Evaluate(ctx, &tickets[i], now)
		if err != nil {
			s.logger.Warn("sla evaluation failed",
				zap.String("ticket_id", tickets[i].ID), zap.Error(err))
			continue
		}
		if recorded {
			escalations++
		}
	}
	return escalations, nil
}
