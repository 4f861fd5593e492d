package service

import (
	"github.com/spec-kit/exchange-desk/internal/domain"
)

// Action names a workflow transition.
type Action string

const (
	ActionReceive          Action = "receive"
	ActionApprove          Action = "approve"
	ActionDeny             Action = "deny"
	ActionCompleteExchange Action = "complete_exchange"
	ActionSendToInvoicing  Action = "send_to_invoicing"
	ActionMarkCollected    Action = "mark_collected"
	ActionInvoiceDone      Action = "invoice_done"
	ActionSendToRefund     Action = "send_to_refund"
	ActionClose            Action = "close"
)

// transitionRule defines where an action is legal, which audit event it
// produces, and which roles may trigger it. ADMIN is accepted everywhere.
type transitionRule struct {
	from  []domain.TicketStage
	event domain.EventType
	roles []domain.Role
}

// transitionTable is the closed adjacency map keyed by action. Any
// (stage, action) pair absent from it is an illegal transition.
var transitionTable = map[Action]transitionRule{
	ActionReceive: {
		from:  []domain.TicketStage{domain.StageLodged},
		event: domain.EventReceived,
		roles: []domain.Role{domain.RoleWarehouse},
	},
	ActionApprove: {
		from:  []domain.TicketStage{domain.StageWarehousePending},
		event: domain.EventApproved,
		roles: []domain.Role{domain.RoleWarehouse},
	},
	ActionDeny: {
		from:  []domain.TicketStage{domain.StageWarehousePending},
		event: domain.EventDenied,
		roles: []domain.Role{domain.RoleWarehouse},
	},
	ActionCompleteExchange: {
		from:  []domain.TicketStage{domain.StageWarehouseApproved},
		event: domain.EventExchangeDone,
		roles: []domain.Role{domain.RoleWarehouse},
	},
	ActionSendToInvoicing: {
		from:  []domain.TicketStage{domain.StageExchangeCompleted},
		event: domain.EventSentToInvoice,
		roles: []domain.Role{domain.RoleWarehouse},
	},
	ActionMarkCollected: {
		from:  []domain.TicketStage{domain.StageExchangeCompleted, domain.StageInvoicingPending},
		event: domain.EventSentToInvoice,
		roles: []domain.Role{domain.RoleSupport, domain.RoleInvoicing},
	},
	ActionInvoiceDone: {
		from:  []domain.TicketStage{domain.StageExchangeCompleted, domain.StageInvoicingPending},
		event: domain.EventInvoiced,
		roles: []domain.Role{domain.RoleInvoicing},
	},
	ActionSendToRefund: {
		from:  []domain.TicketStage{domain.StageInvoiced},
		event: domain.EventRefundSent,
		roles: []domain.Role{domain.RoleInvoicing},
	},
	ActionClose: {
		from:  []domain.TicketStage{domain.StageInvoiced, domain.StageToBeRefunded},
		event: domain.EventClosed,
		roles: []domain.Role{domain.RoleInvoicing},
	},
}

func (r transitionRule) allowsStage(stage domain.TicketStage) bool {
	for _, candidate := range r.from {
		if candidate == stage {
			return true
		}
	}
	return false
}

func (r transitionRule) allowsRole(role domain.Role) bool {
	if role == domain.RoleAdmin {
		return true
	}
	for _, candidate := range r.roles {
		if candidate == role {
			return true
		}
	}
	return false
}
