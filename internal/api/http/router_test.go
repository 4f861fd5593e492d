package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-desk/internal/api/http/handlers"
	"github.com/spec-kit/exchange-desk/internal/auth"
	"github.com/spec-kit/exchange-desk/internal/config"
	"github.com/spec-kit/exchange-desk/internal/domain"
	"github.com/spec-kit/exchange-desk/internal/repository"
	"github.com/spec-kit/exchange-desk/internal/service"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

type stubProfileRepo struct {
	profiles map[string]*domain.Profile
}

func (r *stubProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	r.profiles[profile.ID] = profile
	return nil
}

func (r *stubProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, apperrors.NewNotFound("profile", nil)
	}
	return profile, nil
}

func (r *stubProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	for _, profile := range r.profiles {
		if profile.Email == email {
			return profile, nil
		}
	}
	return nil, apperrors.NewNotFound("profile", nil)
}

func (r *stubProfileRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return nil
}

type stubTicketRepo struct {
	mu     sync.Mutex
	ticket *domain.Ticket
}

func (r *stubTicketRepo) Create(ctx context.Context, ticket *domain.Ticket, event *domain.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = "ticket-1"
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	r.ticket = &stored
	return nil
}

func (r *stubTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticket == nil || r.ticket.ID != id {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	copied := *r.ticket
	return &copied, nil
}

func (r *stubTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticket == nil {
		return nil, nil
	}
	return []domain.Ticket{*r.ticket}, nil
}

func (r *stubTicketRepo) ApplyTransition(ctx context.Context, ticketID string, expectedStage domain.TicketStage, mutation repository.TicketMutation, event *domain.TicketEvent) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticket == nil || r.ticket.ID != ticketID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if r.ticket.Stage != expectedStage {
		return nil, apperrors.NewConcurrencyConflict(ticketID)
	}
	if mutation.Stage != nil {
		r.ticket.Stage = *mutation.Stage
	}
	if mutation.Status != nil {
		r.ticket.Status = *mutation.Status
	}
	if mutation.AmountCollected != nil {
		r.ticket.AmountCollected = *mutation.AmountCollected
	}
	if mutation.RefundAmount != nil {
		r.ticket.RefundAmount = *mutation.RefundAmount
	}
	if mutation.RefundStatus != nil {
		r.ticket.RefundStatus = *mutation.RefundStatus
	}
	copied := *r.ticket
	return &copied, nil
}

type stubEventRepo struct{}

func (r *stubEventRepo) Append(ctx context.Context, event *domain.TicketEvent) error { return nil }

func (r *stubEventRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error) {
	return nil, nil
}

type stubPriceRepo struct{}

func (r *stubPriceRepo) PricesBySKUs(ctx context.Context, skus []string) (map[string]float64, error) {
	return map[string]float64{"SHIRT-001": 25.99}, nil
}

// routerFixture is a fully wired fiber app over in-memory stubs.
type routerFixture struct {
	app         *fiber.App
	authService *service.AuthService
	tickets     *stubTicketRepo
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	profiles := &stubProfileRepo{profiles: map[string]*domain.Profile{}}
	for id, role := range map[string]domain.Role{
		"u-support":   domain.RoleSupport,
		"u-warehouse": domain.RoleWarehouse,
		"u-invoicing": domain.RoleInvoicing,
	} {
		profiles.profiles[id] = &domain.Profile{
			ID:    id,
			Email: id + "@example.com",
			Role:  role,
		}
	}

	tickets := &stubTicketRepo{}
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		EventRepo:  &stubEventRepo{},
		PriceRepo:  &stubPriceRepo{},
		Pricing:    config.PricingConfig{DefaultDeliveryCharge: 150, DeliveryChargeStep: 50},
	})
	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}, profiles)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Export:         handlers.NewExportHandler(ticketService),
		Stats:          handlers.NewStatsHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), profiles),
	})

	return &routerFixture{app: app, authService: authService, tickets: tickets}
}

func (f *routerFixture) tokenFor(t *testing.T, profileID string, role domain.Role) string {
	t.Helper()
	token, _, err := f.authService.TokenManager().GenerateToken(profileID, role)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) seedTicket(stage domain.TicketStage) {
	f.tickets.ticket = &domain.Ticket{
		ID:            "ticket-1",
		OrderID:       "ORD-100",
		CustomerName:  "Priya Nair",
		CustomerPhone: "9876543210",
		ReasonCode:    domain.ReasonWrongSize,
		Stage:         stage,
		Status:        domain.StatusInProcess,
		ReturnItems:   []domain.TicketItem{{SKU: "SHIRT-001", Qty: 1}},
		RefundStatus:  domain.RefundNone,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func (f *routerFixture) post(t *testing.T, path, token string) *nethttp.Response {
	t.Helper()
	req := httptest.NewRequest(nethttp.MethodPost, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func errorCode(t *testing.T, resp *nethttp.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code
}

func TestSupportMayQuoteAndCollect(t *testing.T) {
	fixture := newRouterFixture(t)
	token := fixture.tokenFor(t, "u-support", domain.RoleSupport)

	fixture.seedTicket(domain.StageExchangeCompleted)
	resp := fixture.post(t, "/tickets/ticket-1/quote", token)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp = fixture.post(t, "/tickets/ticket-1/mark-collected", token)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestInvoicingMayCollect(t *testing.T) {
	fixture := newRouterFixture(t)
	token := fixture.tokenFor(t, "u-invoicing", domain.RoleInvoicing)

	fixture.seedTicket(domain.StageInvoicingPending)
	resp := fixture.post(t, "/tickets/ticket-1/mark-collected", token)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestWarehouseMayNotCollect(t *testing.T) {
	fixture := newRouterFixture(t)
	token := fixture.tokenFor(t, "u-warehouse", domain.RoleWarehouse)

	fixture.seedTicket(domain.StageExchangeCompleted)
	resp := fixture.post(t, "/tickets/ticket-1/mark-collected", token)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperrors.CodeForbidden, errorCode(t, resp))
}

func TestSupportMayNotDriveWarehouseActions(t *testing.T) {
	fixture := newRouterFixture(t)
	token := fixture.tokenFor(t, "u-support", domain.RoleSupport)

	fixture.seedTicket(domain.StageLodged)
	resp := fixture.post(t, "/tickets/ticket-1/receive", token)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperrors.CodeForbidden, errorCode(t, resp))
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.seedTicket(domain.StageExchangeCompleted)

	resp := fixture.post(t, "/tickets/ticket-1/mark-collected", "")
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(t, resp))
}
