package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-desk/internal/repository"
)

// StatsHandler serves the dashboard counters.
type StatsHandler struct {
	stats repository.StatsRepository
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats repository.StatsRepository) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// TicketStats GET /stats/tickets.
func (h *StatsHandler) TicketStats(c *fiber.Ctx) error {
	stats, err := h.stats.TicketStats(c.Context(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
