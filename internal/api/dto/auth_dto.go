package dto

import (
	"time"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Email    string      `json:"email"`
	FullName *string     `json:"full_name"`
	Role     domain.Role `json:"role"`
	Password string      `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ProfileResponse describes a principal.
type ProfileResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FullName  *string     `json:"full_name"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}

// NewProfileResponse maps a profile onto the wire shape.
func NewProfileResponse(profile *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		Role:      profile.Role,
		CreatedAt: profile.CreatedAt,
	}
}
