// Package export renders ticket data for offline reporting.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

var csvHeader = []string{
	"Ticket ID",
	"Order ID",
	"Customer Name",
	"Customer Phone",
	"Reason",
	"Stage",
	"Status",
	"Return Items",
	"Exchange Items",
	"Return AWB",
	"Exchange AWB",
	"Amount Collected",
	"Refund Amount",
	"Refund Status",
	"SLA Breached",
	"Created At",
	"Closed At",
}

// WriteTicketsCSV streams the given tickets as a CSV document.
func WriteTicketsCSV(w io.Writer, tickets []domain.Ticket) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range tickets {
		if err := writer.Write(ticketRow(&tickets[i])); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func ticketRow(t *domain.Ticket) []string {
	return []string{
		t.ID,
		t.OrderID,
		t.CustomerName,
		t.CustomerPhone,
		string(t.ReasonCode),
		string(t.Stage),
		string(t.Status),
		formatItems(t.ReturnItems),
		formatItems(t.ExchangeItems),
		derefString(t.ReturnAWB),
		derefString(t.ExchangeAWB),
		fmt.Sprintf("%.2f", t.AmountCollected),
		fmt.Sprintf("%.2f", t.RefundAmount),
		string(t.RefundStatus),
		formatBool(t.SLABreached),
		t.CreatedAt.Format(time.RFC3339),
		formatTime(t.ClosedAt),
	}
}

// formatItems renders "SKU x qty (size)" segments joined by "; ".
func formatItems(items []domain.TicketItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		segment := fmt.Sprintf("%s x%d", item.SKU, item.Qty)
		if item.Size != "" {
			segment += fmt.Sprintf(" (%s)", item.Size)
		}
		parts = append(parts, segment)
	}
	return strings.Join(parts, "; ")
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Filename builds a timestamped export filename.
func Filename(now time.Time) string {
	return fmt.Sprintf("tickets_export_%s.csv", now.Format("2006-01-02"))
}
