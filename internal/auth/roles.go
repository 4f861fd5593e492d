package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

// RequireRole ensures the principal has one of the allowed roles. ADMIN is
// always accepted.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Profile == nil {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 || principal.Profile.Role == domain.RoleAdmin {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Profile.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
