package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-desk/internal/observability"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and
// logging. The request logger sits outside the error handler so it observes
// the status the client actually receives.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger))
	app.Use(errorHandlingMiddleware(logger))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}
