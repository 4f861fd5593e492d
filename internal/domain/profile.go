package domain

import "time"

// Profile is an authenticated principal with a workflow role.
type Profile struct {
	ID           string
	Email        string
	FullName     *string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
