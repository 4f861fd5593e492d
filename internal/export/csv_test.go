package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

func TestWriteTicketsCSV(t *testing.T) {
	createdAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	closedAt := createdAt.Add(72 * time.Hour)
	awb := "AWB-1234"

	tickets := []domain.Ticket{
		{
			ID:            "t-1",
			OrderID:       "ORD-100",
			CustomerName:  "Priya Nair",
			CustomerPhone: "9876543210",
			ReasonCode:    domain.ReasonWrongSize,
			Stage:         domain.StageClosed,
			Status:        domain.StatusCompleted,
			ReturnItems: []domain.TicketItem{
				{SKU: "SHIRT-001", Qty: 2, Size: "M"},
			},
			ExchangeItems: []domain.TicketItem{
				{SKU: "SHIRT-001", Qty: 2, Size: "L"},
			},
			ReturnAWB:       &awb,
			AmountCollected: 98.02,
			RefundStatus:    domain.RefundNone,
			SLABreached:     true,
			CreatedAt:       createdAt,
			ClosedAt:        &closedAt,
		},
		{
			ID:           "t-2",
			OrderID:      "ORD-101",
			CustomerName: "Ravi Kumar",
			ReasonCode:   domain.ReasonDefective,
			Stage:        domain.StageLodged,
			Status:       domain.StatusNew,
			RefundStatus: domain.RefundNone,
			CreatedAt:    createdAt,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTicketsCSV(&buf, tickets))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Ticket ID", records[0][0])
	assert.Equal(t, "SLA Breached", records[0][14])

	row := records[1]
	assert.Equal(t, "t-1", row[0])
	assert.Equal(t, "ORD-100", row[1])
	assert.Equal(t, "WRONG_SIZE", row[4])
	assert.Equal(t, "SHIRT-001 x2 (M)", row[7])
	assert.Equal(t, "SHIRT-001 x2 (L)", row[8])
	assert.Equal(t, "AWB-1234", row[9])
	assert.Equal(t, "98.02", row[11])
	assert.Equal(t, "Yes", row[14])
	assert.Equal(t, "2026-03-10T09:30:00Z", row[15])
	assert.Equal(t, "2026-03-13T09:30:00Z", row[16])

	row = records[2]
	assert.Equal(t, "", row[7], "empty item list renders empty cell")
	assert.Equal(t, "", row[9], "nil AWB renders empty cell")
	assert.Equal(t, "No", row[14])
	assert.Equal(t, "", row[16], "open ticket has no closed timestamp")
}

func TestWriteTicketsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTicketsCSV(&buf, nil))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "tickets_export_2026-03-10.csv", Filename(now))
}
