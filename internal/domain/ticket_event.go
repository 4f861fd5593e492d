package domain

import "time"

// EventType identifies the transition that produced an audit record.
type EventType string

const (
	EventCreated       EventType = "CREATED"
	EventReceived      EventType = "RECEIVED"
	EventApproved      EventType = "APPROVED"
	EventDenied        EventType = "DENIED"
	EventExchangeDone  EventType = "EXCHANGE_DONE"
	EventSentToInvoice EventType = "SENT_TO_INVOICE"
	EventInvoiced      EventType = "INVOICED"
	EventRefundSent    EventType = "REFUND_SENT"
	EventEscalated     EventType = "ESCALATED"
	EventClosed        EventType = "CLOSED"
)

// TicketEvent is one immutable audit record. Events are written in the same
// transaction as the state change they describe and are never mutated.
type TicketEvent struct {
	ID           string
	TicketID     string
	EventType    EventType
	EventByID    *string
	EventAt      time.Time
	EventPayload map[string]any
}
