package events

import (
	"time"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

// Event is a notification published after a transition has been durably
// applied. The audit record itself is written transactionally by the ticket
// repository; this stream only feeds subscribers such as notifications.
type Event struct {
	ID        string           `json:"id"`
	Type      domain.EventType `json:"type"`
	TicketID  string           `json:"ticket_id"`
	Actor     domain.Actor     `json:"actor"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   interface{}      `json:"payload"`
}

// TransitionPayload describes a stage change.
type TransitionPayload struct {
	FromStage domain.TicketStage `json:"from_stage"`
	ToStage   domain.TicketStage `json:"to_stage"`
	OrderID   string             `json:"order_id"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OrderID      string            `json:"order_id"`
	CustomerName string            `json:"customer_name"`
	ReasonCode   domain.ReasonCode `json:"reason_code"`
}

// AmountsPayload accompanies financial transitions.
type AmountsPayload struct {
	FromStage       domain.TicketStage `json:"from_stage"`
	ToStage         domain.TicketStage `json:"to_stage"`
	AmountCollected float64            `json:"amount_collected"`
	RefundAmount    float64            `json:"refund_amount"`
}

// SLABreachPayload accompanies escalation events.
type SLABreachPayload struct {
	Stage      domain.TicketStage `json:"stage"`
	EnteredAt  time.Time          `json:"entered_at"`
	BreachedAt time.Time          `json:"breached_at"`
}
