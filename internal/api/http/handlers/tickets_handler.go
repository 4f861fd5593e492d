package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-desk/internal/api/dto"
	"github.com/spec-kit/exchange-desk/internal/auth"
	"github.com/spec-kit/exchange-desk/internal/domain"
	"github.com/spec-kit/exchange-desk/internal/service"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// TicketsHandler exposes the ticket workflow over HTTP.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		OrderID:        req.OrderID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		StudentName:    req.StudentName,
		StudentGrade:   req.StudentGrade,
		StudentSection: req.StudentSection,
		SchoolName:     req.SchoolName,
		ReasonCode:     req.ReasonCode,
		ReasonNotes:    req.ReasonNotes,
		ReturnItems:    req.ReturnItems,
		ExchangeItems:  req.ExchangeItems,
		Notes:          req.Notes,
	}
	ticket, err := h.service.CreateTicket(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.Context(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	events, err := h.service.ListEvents(c.Context(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, events)})
}

// ListEvents GET /tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	events, err := h.service.ListEvents(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketEventResponse, 0, len(events))
	for i := range events {
		items = append(items, eventResponse(&events[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Receive POST /tickets/:id/receive.
func (h *TicketsHandler) Receive(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.Receive)
}

// Approve POST /tickets/:id/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Approve(c.Context(), actor, c.Params("id"), req.ReturnAWB)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// Deny POST /tickets/:id/deny.
func (h *TicketsHandler) Deny(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.Deny)
}

// CompleteExchange POST /tickets/:id/complete-exchange.
func (h *TicketsHandler) CompleteExchange(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CompleteExchangeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, err := h.service.CompleteExchange(c.Context(), actor, c.Params("id"), req.ExchangeAWB)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// SendToInvoicing POST /tickets/:id/send-to-invoicing.
func (h *TicketsHandler) SendToInvoicing(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.SendToInvoicing)
}

// Quote POST /tickets/:id/quote previews the financial outcome without
// mutating the ticket.
func (h *TicketsHandler) Quote(c *fiber.Ctx) error {
	var req dto.CollectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, quote, err := h.service.Quote(c.Context(), c.Params("id"), req.DeliveryCharge)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuoteResponse(ticket.ID, quote)})
}

// MarkCollected POST /tickets/:id/mark-collected.
func (h *TicketsHandler) MarkCollected(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CollectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, quote, err := h.service.MarkCollected(c.Context(), actor, c.Params("id"), req.DeliveryCharge)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":  ticketDetail(ticket, nil),
		"quote": dto.NewQuoteResponse(ticket.ID, quote),
	})
}

// InvoiceDone POST /tickets/:id/invoice-done.
func (h *TicketsHandler) InvoiceDone(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.InvoiceDone)
}

// SendToRefund POST /tickets/:id/send-to-refund.
func (h *TicketsHandler) SendToRefund(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.SendToRefund)
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.Close)
}

type transitionFunc func(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error)

func (h *TicketsHandler) simpleTransition(c *fiber.Ctx, fn transitionFunc) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := fn(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

func requireActor(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Profile == nil {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if stageStr := c.Query("stage"); stageStr != "" {
		for _, part := range strings.Split(stageStr, ",") {
			filter.Stages = append(filter.Stages, domain.TicketStage(strings.TrimSpace(part)))
		}
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if breachedStr := c.Query("sla_breached"); breachedStr != "" {
		breached := breachedStr == "true" || breachedStr == "1"
		filter.SLABreached = &breached
	}
	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		OrderID:         ticket.OrderID,
		CustomerName:    ticket.CustomerName,
		CustomerPhone:   ticket.CustomerPhone,
		ReasonCode:      ticket.ReasonCode,
		Stage:           ticket.Stage,
		Status:          ticket.Status,
		SLABreached:     ticket.SLABreached,
		AmountCollected: ticket.AmountCollected,
		RefundAmount:    ticket.RefundAmount,
		RefundStatus:    ticket.RefundStatus,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, events []domain.TicketEvent) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		ID:              ticket.ID,
		OrderID:         ticket.OrderID,
		CustomerName:    ticket.CustomerName,
		CustomerPhone:   ticket.CustomerPhone,
		StudentName:     ticket.StudentName,
		StudentGrade:    ticket.StudentGrade,
		StudentSection:  ticket.StudentSection,
		SchoolName:      ticket.SchoolName,
		ReasonCode:      ticket.ReasonCode,
		ReasonNotes:     ticket.ReasonNotes,
		Stage:           ticket.Stage,
		Status:          ticket.Status,
		ReturnItems:     ticket.ReturnItems,
		ExchangeItems:   ticket.ExchangeItems,
		Notes:           ticket.Notes,
		ReturnAWB:       ticket.ReturnAWB,
		ExchangeAWB:     ticket.ExchangeAWB,
		SLABreached:     ticket.SLABreached,
		SLABreachedAt:   ticket.SLABreachedAt,
		AssignedTeam:    ticket.AssignedTeam,
		AmountCollected: ticket.AmountCollected,
		RefundAmount:    ticket.RefundAmount,
		RefundStatus:    ticket.RefundStatus,

		CreatedAt:           ticket.CreatedAt,
		LodgedAt:            ticket.LodgedAt,
		WarehouseReceivedAt: ticket.WarehouseReceivedAt,
		WarehouseApprovedAt: ticket.WarehouseApprovedAt,
		WarehouseDeniedAt:   ticket.WarehouseDeniedAt,
		ExchangeCompletedAt: ticket.ExchangeCompletedAt,
		SentToInvoicingAt:   ticket.SentToInvoicingAt,
		InvoicingDoneAt:     ticket.InvoicingDoneAt,
		RefundSentAt:        ticket.RefundSentAt,
		ClosedAt:            ticket.ClosedAt,
		UpdatedAt:           ticket.UpdatedAt,
	}
	for i := range events {
		resp.Events = append(resp.Events, eventResponse(&events[i]))
	}
	return resp
}

func eventResponse(event *domain.TicketEvent) dto.TicketEventResponse {
	return dto.TicketEventResponse{
		ID:           event.ID,
		EventType:    event.EventType,
		EventByID:    event.EventByID,
		EventAt:      event.EventAt,
		EventPayload: event.EventPayload,
	}
}
