package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-desk/internal/api/dto"
	"github.com/spec-kit/exchange-desk/internal/auth"
	"github.com/spec-kit/exchange-desk/internal/service"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// UsersHandler manages authentication endpoints.
type UsersHandler struct {
	service *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{service: authService}
}

// Register POST /auth/register. Admin-only, enforced at the route level.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.service.Register(c.Context(), service.RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewProfileResponse(profile)})
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Profile:   dto.NewProfileResponse(result.Profile),
	}})
}

// Me GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Profile == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileResponse(principal.Profile)})
}

// ChangePassword POST /auth/password/change.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Profile == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.ChangePassword(c.Context(), principal.Profile.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}
