// Package postgres provides PostgreSQL implementation of the organizations repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/organizations"
	"github.com/outager/outager/internal/pkg/postgres"
)

// Repository implements organizations.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SlugExists reports whether an organization uses slug.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// CreateOrganization inserts an organization.
func (r *Repository) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (name, slug)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, org.Name, org.Slug).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return organizations.ErrSlugTaken
		}
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// DeleteOrganization deletes an organization and, by cascade, everything it owns.
func (r *Repository) DeleteOrganization(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if result.RowsAffected() == 0 {
		return organizations.ErrOrganizationNotFound
	}
	return nil
}

// GetOrganizationBySlug retrieves an organization by slug.
func (r *Repository) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`
	var org domain.Organization
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, organizations.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("get organization by slug: %w", err)
	}
	return &org, nil
}

// ListOrphanOrganizations lists organizations that have no memberships.
func (r *Repository) ListOrphanOrganizations(ctx context.Context) ([]domain.Organization, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.created_at, o.updated_at
		FROM organizations o
		WHERE NOT EXISTS (SELECT 1 FROM memberships m WHERE m.organization_id = o.id)
		ORDER BY o.created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orphan organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]domain.Organization, 0)
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return orgs, nil
}

// CreateMembership inserts a membership.
func (r *Repository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO memberships (organization_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, m.OrganizationID, m.UserID, m.Role).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return organizations.ErrAlreadyMember
		case postgres.IsForeignKeyViolation(err):
			return organizations.ErrOrganizationNotFound
		}
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

const membershipColumns = `id, organization_id, user_id, role, created_at`

// GetMembership retrieves the membership of a user in an organization.
func (r *Repository) GetMembership(ctx context.Context, orgID, userID string) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE organization_id = $1 AND user_id = $2`
	return r.getMembership(ctx, query, orgID, userID)
}

// GetMembershipByID retrieves a membership by id within an organization.
func (r *Repository) GetMembershipByID(ctx context.Context, orgID, memberID string) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE organization_id = $1 AND id = $2`
	return r.getMembership(ctx, query, orgID, memberID)
}

func (r *Repository) getMembership(ctx context.Context, query string, args ...any) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&m.ID,
		&m.OrganizationID,
		&m.UserID,
		&m.Role,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, organizations.ErrMemberNotFound
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

// UpdateMembershipRole sets the role of a membership.
func (r *Repository) UpdateMembershipRole(ctx context.Context, orgID, memberID string, role domain.Role) (*domain.Membership, error) {
	query := `
		UPDATE memberships SET role = $3
		WHERE organization_id = $1 AND id = $2
		RETURNING ` + membershipColumns
	return r.getMembership(ctx, query, orgID, memberID, role)
}

// DeleteMembership deletes a membership.
func (r *Repository) DeleteMembership(ctx context.Context, orgID, memberID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM memberships WHERE organization_id = $1 AND id = $2`, orgID, memberID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return organizations.ErrMemberNotFound
	}
	return nil
}

// ListMembers lists the members of an organization, oldest first.
func (r *Repository) ListMembers(ctx context.Context, orgID string) ([]domain.Member, error) {
	query := `
		SELECT m.id, m.organization_id, m.user_id, m.role, m.created_at, p.email, p.full_name
		FROM memberships m
		JOIN profiles p ON p.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.created_at, m.id
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]domain.Member, 0)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(
			&m.ID,
			&m.OrganizationID,
			&m.UserID,
			&m.Role,
			&m.CreatedAt,
			&m.Email,
			&m.FullName,
		); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// ListUserOrganizations lists the organizations a user belongs to.
func (r *Repository) ListUserOrganizations(ctx context.Context, userID string) ([]domain.OrganizationMembership, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.created_at, o.updated_at, m.role, m.created_at
		FROM memberships m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY m.created_at, o.id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user organizations: %w", err)
	}
	defer rows.Close()

	result := make([]domain.OrganizationMembership, 0)
	for rows.Next() {
		var om domain.OrganizationMembership
		if err := rows.Scan(
			&om.ID,
			&om.Name,
			&om.Slug,
			&om.CreatedAt,
			&om.UpdatedAt,
			&om.Role,
			&om.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		result = append(result, om)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return result, nil
}
