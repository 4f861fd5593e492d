package domain

import "time"

// TicketStage is the primary workflow position of a ticket.
type TicketStage string

const (
	StageLodged            TicketStage = "LODGED"
	StageWarehousePending  TicketStage = "WAREHOUSE_PENDING"
	StageWarehouseApproved TicketStage = "WAREHOUSE_APPROVED"
	StageWarehouseDenied   TicketStage = "WAREHOUSE_DENIED"
	StageExchangeCompleted TicketStage = "EXCHANGE_COMPLETED"
	StageInvoicingPending  TicketStage = "INVOICING_PENDING"
	StageInvoiced          TicketStage = "INVOICED"
	StageToBeRefunded      TicketStage = "TO_BE_REFUNDED"
	StageClosed            TicketStage = "CLOSED"
)

// IsTerminal reports whether no further transitions are possible.
func (s TicketStage) IsTerminal() bool {
	return s == StageClosed || s == StageWarehouseDenied
}

// TicketStatus is the coarse completion state, orthogonal to stage.
type TicketStatus string

const (
	StatusNew       TicketStatus = "NEW"
	StatusInProcess TicketStatus = "IN_PROCESS"
	StatusCompleted TicketStatus = "COMPLETED"
	StatusDenied    TicketStatus = "DENIED"
	StatusEscalated TicketStatus = "ESCALATED"
)

// ReasonCode classifies why the customer lodged the request.
type ReasonCode string

const (
	ReasonWrongSize    ReasonCode = "WRONG_SIZE"
	ReasonDefective    ReasonCode = "DEFECTIVE"
	ReasonWrongItem    ReasonCode = "WRONG_ITEM"
	ReasonChangedMind  ReasonCode = "CHANGED_MIND"
	ReasonQualityIssue ReasonCode = "QUALITY_ISSUE"
	ReasonOther        ReasonCode = "OTHER"
)

// ValidReasonCode reports whether the code is one of the known values.
func ValidReasonCode(code ReasonCode) bool {
	switch code {
	case ReasonWrongSize, ReasonDefective, ReasonWrongItem, ReasonChangedMind, ReasonQualityIssue, ReasonOther:
		return true
	}
	return false
}

// RefundStatus tracks the refund leg of a ticket.
type RefundStatus string

const (
	RefundNone      RefundStatus = "NONE"
	RefundPending   RefundStatus = "PENDING"
	RefundProcessed RefundStatus = "PROCESSED"
)

// TicketItem is a line item on a return or exchange list. Immutable once
// placed on a ticket.
type TicketItem struct {
	SKU         string `json:"sku"`
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Qty         int    `json:"qty"`
}

// Ticket is the aggregate for one exchange/return request.
type Ticket struct {
	ID             string
	OrderID        string
	CustomerName   string
	CustomerPhone  string
	StudentName    *string
	StudentGrade   *string
	StudentSection *string
	SchoolName     *string
	ReasonCode     ReasonCode
	ReasonNotes    *string
	Stage          TicketStage
	Status         TicketStatus
	ReturnItems    []TicketItem
	ExchangeItems  []TicketItem
	Notes          *string
	ReturnAWB      *string
	ExchangeAWB    *string
	SLABreached    bool
	SLABreachedAt  *time.Time
	AssignedTeam   string
	CreatedByID    *string

	RefundAmount    float64
	RefundStatus    RefundStatus
	AmountCollected float64

	CreatedAt           time.Time
	LodgedAt            *time.Time
	WarehouseReceivedAt *time.Time
	WarehouseApprovedAt *time.Time
	WarehouseDeniedAt   *time.Time
	ExchangeCompletedAt *time.Time
	SentToInvoicingAt   *time.Time
	InvoicingDoneAt     *time.Time
	RefundSentAt        *time.Time
	ClosedAt            *time.Time
	UpdatedAt           time.Time
}

// StageEnteredAt returns the timestamp at which the ticket entered its
// current stage, used for SLA dwell-time evaluation.
func (t *Ticket) StageEnteredAt() time.Time {
	var entered *time.Time
	switch t.Stage {
	case StageWarehousePending:
		entered = t.WarehouseReceivedAt
	case StageWarehouseApproved:
		entered = t.WarehouseApprovedAt
	case StageWarehouseDenied:
		entered = t.WarehouseDeniedAt
	case StageExchangeCompleted:
		entered = t.ExchangeCompletedAt
	case StageInvoicingPending:
		entered = t.SentToInvoicingAt
	case StageInvoiced:
		entered = t.InvoicingDoneAt
	case StageClosed:
		entered = t.ClosedAt
	}
	if entered != nil {
		return *entered
	}
	return t.CreatedAt
}
