package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/exchange-desk/internal/domain"
	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// ProfileRepository stores authenticated principals.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository instantiates repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (email, full_name, role, password_hash)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		profile.Email,
		profile.FullName,
		profile.Role,
		profile.PasswordHash,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `
        SELECT id, email, full_name, role, password_hash, created_at, updated_at
        FROM profiles WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	const query = `
        SELECT id, email, full_name, role, password_hash, created_at, updated_at
        FROM profiles WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *profileRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.Role,
		&profile.PasswordHash,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", nil)
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return &profile, nil
}

func (r *profileRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE profiles SET password_hash=$1, updated_at=NOW() WHERE id=$2`, passwordHash, id)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("profile", map[string]any{"id": id})
	}
	return nil
}
