package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

func TestErrorMiddlewareShapesDomainErrors(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), 0)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", map[string]any{"id": "t-1"})
	})

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, resp))
}

func TestRequestLoggerSeesFinalStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New()
	RegisterMiddlewares(app, zap.New(core), 0)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperrors.NewConcurrencyConflict("t-1")
	})

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/boom", nil))
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusConflict, resp.StatusCode)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, nethttp.StatusConflict, fields["status"],
		"the logged status matches what the client received")
}

func TestPanicRecoversToInternalError(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), 0)
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, apperrors.CodeInternal, errorCode(t, resp))
}
