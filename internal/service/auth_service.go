package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/exchange-desk/internal/auth"
	"github.com/spec-kit/exchange-desk/internal/config"
	"github.com/spec-kit/exchange-desk/internal/domain"
	"github.com/spec-kit/exchange-desk/internal/repository"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// AuthService issues tokens for role-bearing profiles.
type AuthService struct {
	profiles   repository.ProfileRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, profiles repository.ProfileRepository) *AuthService {
	return &AuthService{
		profiles:   profiles,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the manager for the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// RegisterInput describes a new profile.
type RegisterInput struct {
	Email    string
	FullName *string
	Role     domain.Role
	Password string
}

// Register creates a profile. Only admins may call this (enforced at the
// route level).
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("email and a password of at least 8 characters required", nil)
	}
	if !domain.ValidRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	profile := &domain.Profile{
		Email:        email,
		FullName:     input.FullName,
		Role:         input.Role,
		PasswordHash: hash,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// LoginResult carries the issued token.
type LoginResult struct {
	Profile   *domain.Profile
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(profile.ID, profile.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Profile: profile, Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword rotates the caller's password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, profileID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("new password must be at least 8 characters", nil)
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(profile.PasswordHash, oldPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.profiles.UpdatePassword(ctx, profileID, hash)
}
