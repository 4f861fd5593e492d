package handlers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-desk/internal/export"
	"github.com/spec-kit/exchange-desk/internal/service"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// ExportHandler streams ticket data as CSV for offline reporting.
type ExportHandler struct {
	service *service.TicketService
}

// NewExportHandler constructs handler.
func NewExportHandler(ticketService *service.TicketService) *ExportHandler {
	return &ExportHandler{service: ticketService}
}

// ExportCSV GET /tickets/export. The same list filters apply; the page size
// is widened so a filtered export fits in one response.
func (h *ExportHandler) ExportCSV(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	if c.Query("page_size") == "" {
		filter.Limit = 10000
		filter.Offset = 0
	}

	tickets, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteTicketsCSV(&buf, tickets); err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+export.Filename(time.Now())+`"`)
	return c.Send(buf.Bytes())
}
