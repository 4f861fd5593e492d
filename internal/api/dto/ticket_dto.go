package dto

import (
	"time"

	"github.com/spec-kit/exchange-desk/internal/domain"
	"github.com/spec-kit/exchange-desk/internal/pricing"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	OrderID        string              `json:"order_id"`
	CustomerName   string              `json:"customer_name"`
	CustomerPhone  string              `json:"customer_phone"`
	StudentName    *string             `json:"student_name"`
	StudentGrade   *string             `json:"student_grade"`
	StudentSection *string             `json:"student_section"`
	SchoolName     *string             `json:"school_name"`
	ReasonCode     domain.ReasonCode   `json:"reason_code"`
	ReasonNotes    *string             `json:"reason_notes"`
	ReturnItems    []domain.TicketItem `json:"return_items"`
	ExchangeItems  []domain.TicketItem `json:"exchange_items"`
	Notes          *string             `json:"notes"`
}

// ApproveRequest payload. The return AWB is mandatory for approval.
type ApproveRequest struct {
	ReturnAWB string `json:"return_awb"`
}

// CompleteExchangeRequest payload.
type CompleteExchangeRequest struct {
	ExchangeAWB *string `json:"exchange_awb"`
}

// CollectRequest payload for quote and mark-collected endpoints.
type CollectRequest struct {
	DeliveryCharge *float64 `json:"delivery_charge"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string              `json:"id"`
	OrderID         string              `json:"order_id"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	ReasonCode      domain.ReasonCode   `json:"reason_code"`
	Stage           domain.TicketStage  `json:"stage"`
	Status          domain.TicketStatus `json:"status"`
	SLABreached     bool                `json:"sla_breached"`
	AmountCollected float64             `json:"amount_collected"`
	RefundAmount    float64             `json:"refund_amount"`
	RefundStatus    domain.RefundStatus `json:"refund_status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID              string              `json:"id"`
	OrderID         string              `json:"order_id"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	StudentName     *string             `json:"student_name"`
	StudentGrade    *string             `json:"student_grade"`
	StudentSection  *string             `json:"student_section"`
	SchoolName      *string             `json:"school_name"`
	ReasonCode      domain.ReasonCode   `json:"reason_code"`
	ReasonNotes     *string             `json:"reason_notes"`
	Stage           domain.TicketStage  `json:"stage"`
	Status          domain.TicketStatus `json:"status"`
	ReturnItems     []domain.TicketItem `json:"return_items"`
	ExchangeItems   []domain.TicketItem `json:"exchange_items"`
	Notes           *string             `json:"notes"`
	ReturnAWB       *string             `json:"return_awb"`
	ExchangeAWB     *string             `json:"exchange_awb"`
	SLABreached     bool                `json:"sla_breached"`
	SLABreachedAt   *time.Time          `json:"sla_breached_at"`
	AssignedTeam    string              `json:"assigned_team"`
	AmountCollected float64             `json:"amount_collected"`
	RefundAmount    float64             `json:"refund_amount"`
	RefundStatus    domain.RefundStatus `json:"refund_status"`

	CreatedAt           time.Time  `json:"created_at"`
	LodgedAt            *time.Time `json:"lodged_at"`
	WarehouseReceivedAt *time.Time `json:"warehouse_received_at"`
	WarehouseApprovedAt *time.Time `json:"warehouse_approved_at"`
	WarehouseDeniedAt   *time.Time `json:"warehouse_denied_at"`
	ExchangeCompletedAt *time.Time `json:"exchange_completed_at"`
	SentToInvoicingAt   *time.Time `json:"sent_to_invoicing_at"`
	InvoicingDoneAt     *time.Time `json:"invoicing_done_at"`
	RefundSentAt        *time.Time `json:"refund_sent_at"`
	ClosedAt            *time.Time `json:"closed_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Events []TicketEventResponse `json:"events,omitempty"`
}

// TicketEventResponse represents one audit trail entry.
type TicketEventResponse struct {
	ID           string           `json:"id"`
	EventType    domain.EventType `json:"event_type"`
	EventByID    *string          `json:"event_by_id"`
	EventAt      time.Time        `json:"event_at"`
	EventPayload map[string]any   `json:"event_payload"`
}

// QuoteResponse previews the financial outcome of a ticket.
type QuoteResponse struct {
	TicketID        string  `json:"ticket_id"`
	ReturnValue     float64 `json:"return_value"`
	ExchangeValue   float64 `json:"exchange_value"`
	DeliveryCharge  float64 `json:"delivery_charge"`
	NetAmount       float64 `json:"net_amount"`
	AmountToCollect float64 `json:"amount_to_collect"`
	RefundAmount    float64 `json:"refund_amount"`
}

// NewQuoteResponse maps a calculator quote onto the wire shape.
func NewQuoteResponse(ticketID string, quote pricing.Quote) QuoteResponse {
	return QuoteResponse{
		TicketID:        ticketID,
		ReturnValue:     quote.ReturnValue,
		ExchangeValue:   quote.ExchangeValue,
		DeliveryCharge:  quote.DeliveryCharge,
		NetAmount:       quote.NetAmount,
		AmountToCollect: quote.AmountToCollect,
		RefundAmount:    quote.RefundAmount,
	}
}
