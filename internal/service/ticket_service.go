package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/exchange-desk/internal/config"
	"github.com/spec-kit/exchange-desk/internal/domain"
	"github.com/spec-kit/exchange-desk/internal/events"
	"github.com/spec-kit/exchange-desk/internal/observability"
	"github.com/spec-kit/exchange-desk/internal/pricing"
	"github.com/spec-kit/exchange-desk/internal/repository"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// TicketService is the stage transition engine. Every mutation after creation
// goes through a named transition so the audit trail stays complete.
type TicketService struct {
	tickets      repository.TicketRepository
	ticketEvents repository.TicketEventRepository
	prices       repository.PriceRepository
	dispatcher   events.Dispatcher
	pricingCfg   config.PricingConfig
	now          func() time.Time
}

// TicketDependencies bundles collaborators for the engine.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	EventRepo  repository.TicketEventRepository
	PriceRepo  repository.PriceRepository
	Dispatcher events.Dispatcher
	Pricing    config.PricingConfig
}

// TicketCreateInput describes the support role's lodging payload.
type TicketCreateInput struct {
	OrderID        string
	CustomerName   string
	CustomerPhone  string
	StudentName    *string
	StudentGrade   *string
	StudentSection *string
	SchoolName     *string
	ReasonCode     domain.ReasonCode
	ReasonNotes    *string
	ReturnItems    []domain.TicketItem
	ExchangeItems  []domain.TicketItem
	Notes          *string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Stages      []domain.TicketStage
	Statuses    []domain.TicketStatus
	SLABreached *bool
	Search      *string
	Limit       int
	Offset      int
}

// NewTicketService constructs the engine.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:      deps.TicketRepo,
		ticketEvents: deps.EventRepo,
		prices:       deps.PriceRepo,
		dispatcher:   deps.Dispatcher,
		pricingCfg:   deps.Pricing,
		now:          time.Now,
	}
}

// CreateTicket lodges a new request. The ticket and its CREATED event are
// written in one atomic unit.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	createdBy := actor.UserID
	ticket := &domain.Ticket{
		OrderID:        strings.TrimSpace(input.OrderID),
		CustomerName:   strings.TrimSpace(input.CustomerName),
		CustomerPhone:  strings.TrimSpace(input.CustomerPhone),
		StudentName:    input.StudentName,
		StudentGrade:   input.StudentGrade,
		StudentSection: input.StudentSection,
		SchoolName:     input.SchoolName,
		ReasonCode:     input.ReasonCode,
		ReasonNotes:    input.ReasonNotes,
		Stage:          domain.StageLodged,
		Status:         domain.StatusNew,
		ReturnItems:    input.ReturnItems,
		ExchangeItems:  input.ExchangeItems,
		Notes:          input.Notes,
		AssignedTeam:   "support",
		CreatedByID:    &createdBy,
		RefundStatus:   domain.RefundNone,
	}

	event := &domain.TicketEvent{
		EventType: domain.EventCreated,
		EventByID: &createdBy,
		EventPayload: map[string]any{
			"order_id":      ticket.OrderID,
			"customer_name": ticket.CustomerName,
			"reason_code":   ticket.ReasonCode,
		},
	}
	if err := s.tickets.Create(ctx, ticket, event); err != nil {
		return nil, err
	}

	observability.TicketsCreatedTotal.Inc()
	s.publish(ctx, events.Event{
		Type:     domain.EventCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			OrderID:      ticket.OrderID,
			CustomerName: ticket.CustomerName,
			ReasonCode:   ticket.ReasonCode,
		},
	})
	return ticket, nil
}

func validateCreateInput(input TicketCreateInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.OrderID) == "" {
		details["order_id"] = "required"
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		details["customer_name"] = "required"
	}
	if strings.TrimSpace(input.CustomerPhone) == "" {
		details["customer_phone"] = "required"
	}
	if !domain.ValidReasonCode(input.ReasonCode) {
		details["reason_code"] = "missing or unknown"
	}
	if len(input.ReturnItems) == 0 {
		details["return_items"] = "at least one return item required"
	}
	for _, item := range append(append([]domain.TicketItem{}, input.ReturnItems...), input.ExchangeItems...) {
		if strings.TrimSpace(item.SKU) == "" || item.Qty < 1 {
			details["items"] = "every item needs a sku and qty >= 1"
			break
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// ListTickets returns tickets matching the filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Stages:      filter.Stages,
		Statuses:    filter.Statuses,
		SLABreached: filter.SLABreached,
		Search:      filter.Search,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// ListEvents returns the audit trail for a ticket, oldest first.
func (s *TicketService) ListEvents(ctx context.Context, ticketID string) ([]domain.TicketEvent, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.ticketEvents.ListByTicket(ctx, ticketID)
}

// Receive marks the returned goods as arrived at the warehouse.
func (s *TicketService) Receive(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	mutation := repository.TicketMutation{
		Stage:               stagePtr(domain.StageWarehousePending),
		Status:              statusPtr(domain.StatusInProcess),
		AssignedTeam:        strPtr("warehouse"),
		WarehouseReceivedAt: &now,
	}
	return s.apply(ctx, actor, ActionReceive, ticket, mutation, nil)
}

// Approve accepts the return; a non-empty return AWB is required.
func (s *TicketService) Approve(ctx context.Context, actor domain.Actor, ticketID, awb string) (*domain.Ticket, error) {
	awb = strings.TrimSpace(awb)
	if awb == "" {
		return nil, apperrors.NewValidationError("return AWB required to approve", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	mutation := repository.TicketMutation{
		Stage:               stagePtr(domain.StageWarehouseApproved),
		ReturnAWB:           &awb,
		WarehouseApprovedAt: &now,
	}
	return s.apply(ctx, actor, ActionApprove, ticket, mutation, map[string]any{"return_awb": awb})
}

// Deny rejects the return. WAREHOUSE_DENIED is terminal.
func (s *TicketService) Deny(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	mutation := repository.TicketMutation{
		Stage:             stagePtr(domain.StageWarehouseDenied),
		Status:            statusPtr(domain.StatusDenied),
		WarehouseDeniedAt: &now,
	}
	return s.apply(ctx, actor, ActionDeny, ticket, mutation, nil)
}

// CompleteExchange records the replacement shipment; the exchange AWB is
// optional.
func (s *TicketService) CompleteExchange(ctx context.Context, actor domain.Actor, ticketID string, awb *string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	mutation := repository.TicketMutation{
		Stage:               stagePtr(domain.StageExchangeCompleted),
		ExchangeCompletedAt: &now,
	}
	payload := map[string]any{}
	if awb != nil && strings.TrimSpace(*awb) != "" {
		trimmed := strings.TrimSpace(*awb)
		mutation.ExchangeAWB = &trimmed
		payload["exchange_awb"] = trimmed
	}
	return s.apply(ctx, actor, ActionCompleteExchange, ticket, mutation, payload)
}

// SendToInvoicing hands the ticket to the invoicing team.
func (s *TicketService) SendToInvoicing(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	mutation := repository.TicketMutation{
		Stage:             stagePtr(domain.StageInvoicingPending),
		AssignedTeam:      strPtr("invoicing"),
		SentToInvoicingAt: &now,
	}
	return s.apply(ctx, actor, ActionSendToInvoicing, ticket, mutation, nil)
}

// Quote previews the financial outcome without mutating the ticket. The same
// calculator runs here and in MarkCollected, so preview and record agree.
func (s *TicketService) Quote(ctx context.Context, ticketID string, deliveryCharge *float64) (*domain.Ticket, pricing.Quote, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	quote, err := s.quoteFor(ctx, ticket, deliveryCharge)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	return ticket, quote, nil
}

// MarkCollected finalizes the money side: a positive net amount is recorded
// as collected, otherwise the refund owed is registered. The ticket advances
// toward invoicing either way. Re-invocation after an amount has been
// recorded is rejected so the trail cannot double-count.
func (s *TicketService) MarkCollected(ctx context.Context, actor domain.Actor, ticketID string, deliveryCharge *float64) (*domain.Ticket, pricing.Quote, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	if ticket.AmountCollected > 0 || ticket.RefundStatus != domain.RefundNone {
		return nil, pricing.Quote{}, apperrors.NewIllegalTransition(string(ActionMarkCollected), string(ticket.Stage))
	}

	quote, err := s.quoteFor(ctx, ticket, deliveryCharge)
	if err != nil {
		return nil, pricing.Quote{}, err
	}

	now := s.now()
	mutation := repository.TicketMutation{
		Stage:  stagePtr(domain.StageInvoicingPending),
		Status: statusPtr(domain.StatusInProcess),
	}
	if ticket.ExchangeCompletedAt == nil {
		mutation.ExchangeCompletedAt = &now
	}
	if ticket.SentToInvoicingAt == nil {
		mutation.SentToInvoicingAt = &now
		mutation.AssignedTeam = strPtr("invoicing")
	}
	if quote.AmountToCollect > 0 {
		mutation.AmountCollected = &quote.AmountToCollect
	} else {
		mutation.RefundAmount = &quote.RefundAmount
		mutation.RefundStatus = refundStatusPtr(domain.RefundPending)
	}

	payload := map[string]any{
		"amount_collected": quote.AmountToCollect,
		"refund_amount":    quote.RefundAmount,
		"delivery_charge":  quote.DeliveryCharge,
	}
	updated, err := s.apply(ctx, actor, ActionMarkCollected, ticket, mutation, payload)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	return updated, quote, nil
}

// InvoiceDone marks reconciliation complete.
func (s *TicketService) InvoiceDone(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	mutation := repository.TicketMutation{
		Stage:           stagePtr(domain.StageInvoiced),
		Status:          statusPtr(domain.StatusCompleted),
		InvoicingDoneAt: &now,
	}
	return s.apply(ctx, actor, ActionInvoiceDone, ticket, mutation, nil)
}

// SendToRefund pays out a refund-owed ticket and closes it.
func (s *TicketService) SendToRefund(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RefundAmount <= 0 {
		return nil, apperrors.NewIllegalTransition(string(ActionSendToRefund), string(ticket.Stage))
	}
	now := s.now()
	mutation := repository.TicketMutation{
		Stage:        stagePtr(domain.StageClosed),
		Status:       statusPtr(domain.StatusCompleted),
		RefundStatus: refundStatusPtr(domain.RefundProcessed),
		RefundSentAt: &now,
		ClosedAt:     &now,
	}
	payload := map[string]any{"refund_amount": ticket.RefundAmount}
	return s.apply(ctx, actor, ActionSendToRefund, ticket, mutation, payload)
}

// Close finalizes a ticket with no refund leg outstanding.
func (s *TicketService) Close(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Stage == domain.StageInvoiced && ticket.RefundAmount > 0 && ticket.RefundStatus != domain.RefundProcessed {
		return nil, apperrors.NewIllegalTransition(string(ActionClose), string(ticket.Stage))
	}
	now := s.now()
	mutation := repository.TicketMutation{
		Stage:    stagePtr(domain.StageClosed),
		Status:   statusPtr(domain.StatusCompleted),
		ClosedAt: &now,
	}
	if ticket.RefundAmount > 0 {
		mutation.RefundStatus = refundStatusPtr(domain.RefundProcessed)
	}
	return s.apply(ctx, actor, ActionClose, ticket, mutation, nil)
}

// apply validates the (stage, action) pair and role, then performs the
// conditional update keyed on the stage read above. A concurrent transition
// surfaces as a conflict and nothing is written.
func (s *TicketService) apply(ctx context.Context, actor domain.Actor, action Action, ticket *domain.Ticket, mutation repository.TicketMutation, extraPayload map[string]any) (*domain.Ticket, error) {
	rule, ok := transitionTable[action]
	if !ok {
		return nil, apperrors.NewIllegalTransition(string(action), string(ticket.Stage))
	}
	if !rule.allowsRole(actor.Role) {
		return nil, apperrors.NewForbidden("role " + string(actor.Role) + " may not " + string(action))
	}
	if !rule.allowsStage(ticket.Stage) {
		observability.TransitionFailuresTotal.WithLabelValues(string(action), apperrors.CodeIllegalTransition).Inc()
		return nil, apperrors.NewIllegalTransition(string(action), string(ticket.Stage))
	}

	// escalated tickets return to normal flow on the next handled transition
	if mutation.Status == nil && ticket.Status == domain.StatusEscalated {
		mutation.Status = statusPtr(domain.StatusInProcess)
	}

	payload := map[string]any{
		"from_stage": ticket.Stage,
	}
	if mutation.Stage != nil {
		payload["to_stage"] = *mutation.Stage
	}
	for key, value := range extraPayload {
		payload[key] = value
	}
	actorID := actor.UserID
	event := &domain.TicketEvent{
		EventType:    rule.event,
		EventByID:    &actorID,
		EventPayload: payload,
	}

	updated, err := s.tickets.ApplyTransition(ctx, ticket.ID, ticket.Stage, mutation, event)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeConflict) {
			observability.TransitionFailuresTotal.WithLabelValues(string(action), apperrors.CodeConflict).Inc()
		}
		return nil, err
	}

	observability.TransitionsAppliedTotal.WithLabelValues(string(action)).Inc()

	// transitions that settle money carry the amounts for subscribers
	var notifyPayload any = events.TransitionPayload{
		FromStage: ticket.Stage,
		ToStage:   updated.Stage,
		OrderID:   updated.OrderID,
	}
	if mutation.AmountCollected != nil || mutation.RefundAmount != nil {
		notifyPayload = events.AmountsPayload{
			FromStage:       ticket.Stage,
			ToStage:         updated.Stage,
			AmountCollected: updated.AmountCollected,
			RefundAmount:    updated.RefundAmount,
		}
	}
	s.publish(ctx, events.Event{
		Type:     rule.event,
		TicketID: updated.ID,
		Actor:    actor,
		Payload:  notifyPayload,
	})
	return updated, nil
}

func (s *TicketService) quoteFor(ctx context.Context, ticket *domain.Ticket, deliveryCharge *float64) (pricing.Quote, error) {
	charge := s.pricingCfg.DefaultDeliveryCharge
	if deliveryCharge != nil {
		if !pricing.ValidDeliveryCharge(*deliveryCharge, s.pricingCfg.DeliveryChargeStep) {
			return pricing.Quote{}, apperrors.NewValidationError("delivery charge must be non-negative and in steps of 50", nil)
		}
		charge = *deliveryCharge
	}

	skus := make([]string, 0, len(ticket.ReturnItems)+len(ticket.ExchangeItems))
	for _, item := range ticket.ReturnItems {
		skus = append(skus, item.SKU)
	}
	for _, item := range ticket.ExchangeItems {
		skus = append(skus, item.SKU)
	}
	catalog, err := s.prices.PricesBySKUs(ctx, skus)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.Compute(ticket.ReturnItems, ticket.ExchangeItems, pricing.MapLookup(catalog), charge), nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stagePtr(stage domain.TicketStage) *domain.TicketStage { return &stage }

func statusPtr(status domain.TicketStatus) *domain.TicketStatus { return &status }

func refundStatusPtr(status domain.RefundStatus) *domain.RefundStatus { return &status }

func strPtr(value string) *string { return &value }
