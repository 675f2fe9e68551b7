// Package postgres provides PostgreSQL implementation of the identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/identity"
	"github.com/outager/outager/internal/pkg/postgres"
)

// Repository implements identity.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertProfile inserts the profile or refreshes its email and name.
// An empty full name never overwrites a stored one. The id conflict is the
// upsert itself; the only other unique constraint is the email.
func (r *Repository) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), profiles.full_name),
			updated_at = NOW()
		RETURNING full_name, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, profile.ID, profile.Email, profile.FullName).
		Scan(&profile.FullName, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return identity.ErrEmailInUse
		}
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfileByID retrieves a profile by its id.
func (r *Repository) GetProfileByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, email, full_name, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	return r.getProfile(ctx, query, id)
}

// GetProfileByEmail retrieves a profile by its lower-cased email.
func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `
		SELECT id, email, full_name, created_at, updated_at
		FROM profiles
		WHERE email = $1
	`
	return r.getProfile(ctx, query, email)
}

func (r *Repository) getProfile(ctx context.Context, query string, arg string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}
