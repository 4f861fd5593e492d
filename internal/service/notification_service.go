package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/exchange-desk/internal/domain"
	"github.com/spec-kit/exchange-desk/internal/events"
)

// NotificationService logs outbound notifications for workflow events. The
// transports themselves (SMS to the customer, team webhooks) are stubs.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(domain.EventCreated, n.handleEvent)
	n.dispatcher.Subscribe(domain.EventReceived, n.handleEvent)
	n.dispatcher.Subscribe(domain.EventApproved, n.handleEvent)
	n.dispatcher.Subscribe(domain.EventDenied, n.handleEvent)
	n.dispatcher.Subscribe(domain.EventExchangeDone, n.handleEvent)
	n.dispatcher.Subscribe(domain.EventSentToInvoice, n.handleEvent)
	n.dispatcher.Subscribe(domain.EventInvoiced, n.handleEvent)
	n.dispatcher.Subscribe(domain.EventRefundSent, n.handleEvent)
	n.dispatcher.Subscribe(domain.EventEscalated, n.handleEscalation)
	n.dispatcher.Subscribe(domain.EventClosed, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleEscalation(ctx context.Context, event events.Event) error {
	n.logger.Warn("ticket escalated",
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}
