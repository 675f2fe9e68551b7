package organizations

import (
	"context"

	"github.com/outager/outager/internal/domain"
)

// Repository defines the interface for organization and membership storage.
type Repository interface {
	// SlugExists reports whether an organization already uses slug.
	SlugExists(ctx context.Context, slug string) (bool, error)
	// CreateOrganization returns ErrSlugTaken on a slug collision.
	CreateOrganization(ctx context.Context, org *domain.Organization) error
	DeleteOrganization(ctx context.Context, id string) error
	GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	ListOrphanOrganizations(ctx context.Context) ([]domain.Organization, error)

	// CreateMembership returns ErrAlreadyMember on a duplicate (organization, user) pair.
	CreateMembership(ctx context.Context, m *domain.Membership) error
	GetMembership(ctx context.Context, orgID, userID string) (*domain.Membership, error)
	GetMembershipByID(ctx context.Context, orgID, memberID string) (*domain.Membership, error)
	UpdateMembershipRole(ctx context.Context, orgID, memberID string, role domain.Role) (*domain.Membership, error)
	DeleteMembership(ctx context.Context, orgID, memberID string) error
	ListMembers(ctx context.Context, orgID string) ([]domain.Member, error)
	ListUserOrganizations(ctx context.Context, userID string) ([]domain.OrganizationMembership, error)
}

// UserDirectory resolves users by email.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*domain.Profile, error)
}
