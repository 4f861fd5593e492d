package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-desk/internal/domain"
	"github.com/spec-kit/exchange-desk/internal/repository"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Profile *domain.Profile
}

// Actor converts the principal to the explicit actor threaded into every
// engine call.
func (p *Principal) Actor() domain.Actor {
	return domain.Actor{UserID: p.Profile.ID, Role: p.Profile.Role}
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	profiles repository.ProfileRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, profiles repository.ProfileRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, profiles: profiles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	profile, err := m.profiles.GetByID(c.Context(), claims.ProfileID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return apperrors.NewUnauthorized("profile not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{Profile: profile})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
