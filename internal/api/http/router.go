package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/exchange-desk/internal/api/http/handlers"
	"github.com/spec-kit/exchange-desk/internal/auth"
	"github.com/spec-kit/exchange-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Export         *handlers.ExportHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role checks at the route level are the
// first gate; the transition engine enforces the same policy again so a
// misrouted call can never slip through.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Get("/me", cfg.Users.Me)
	authProtected.Post("/password/change", cfg.Users.ChangePassword)
	authProtected.Post("/register", auth.RequireRole(domain.RoleAdmin), cfg.Users.Register)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/export", auth.RequireRole(domain.RoleSupport, domain.RoleInvoicing), cfg.Export.ExportCSV)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/events", cfg.Tickets.ListEvents)

	tickets.Post("/", auth.RequireRole(domain.RoleSupport), cfg.Tickets.CreateTicket)

	warehouse := auth.RequireRole(domain.RoleWarehouse)
	tickets.Post("/:id/receive", warehouse, cfg.Tickets.Receive)
	tickets.Post("/:id/approve", warehouse, cfg.Tickets.Approve)
	tickets.Post("/:id/deny", warehouse, cfg.Tickets.Deny)
	tickets.Post("/:id/complete-exchange", warehouse, cfg.Tickets.CompleteExchange)
	tickets.Post("/:id/send-to-invoicing", warehouse, cfg.Tickets.SendToInvoicing)

	invoicing := auth.RequireRole(domain.RoleInvoicing)
	collecting := auth.RequireRole(domain.RoleSupport, domain.RoleInvoicing)
	tickets.Post("/:id/quote", collecting, cfg.Tickets.Quote)
	tickets.Post("/:id/mark-collected", collecting, cfg.Tickets.MarkCollected)
	tickets.Post("/:id/invoice-done", invoicing, cfg.Tickets.InvoiceDone)
	tickets.Post("/:id/send-to-refund", invoicing, cfg.Tickets.SendToRefund)
	tickets.Post("/:id/close", invoicing, cfg.Tickets.Close)

	stats := app.Group("/stats", cfg.AuthMiddleware.Handle)
	stats.Get("/tickets", cfg.Stats.TicketStats)
}
