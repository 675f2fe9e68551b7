// Package organizations manages organizations, memberships and the
// role checks every organization-scoped operation goes through.
package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/outager/outager/internal/authz"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/identity"
	"github.com/outager/outager/internal/pkg/ctxlog"
	"github.com/outager/outager/internal/pkg/retry"
	"github.com/outager/outager/internal/pkg/saga"
	"github.com/outager/outager/internal/pkg/slug"
)

// DefaultSlugAttempts bounds slug candidates tried per organization.
const DefaultSlugAttempts = 10

// Config contains registry settings.
type Config struct {
	SlugAttempts int
}

// Service implements membership registry business logic.
type Service struct {
	repo         Repository
	users        UserDirectory
	slugAttempts int
}

// NewService creates a new organizations service.
func NewService(repo Repository, users UserDirectory, cfg Config) *Service {
	attempts := cfg.SlugAttempts
	if attempts <= 0 {
		attempts = DefaultSlugAttempts
	}
	return &Service{
		repo:         repo,
		users:        users,
		slugAttempts: attempts,
	}
}

// CreateOrganization creates an organization with a unique slug derived from
// name and makes ownerUserID its admin. If the admin membership cannot be
// recorded the organization is deleted again.
func (s *Service) CreateOrganization(ctx context.Context, name, ownerUserID string) (*domain.Organization, error) {
	name = strings.TrimSpace(name)
	base := slug.Derive(name)
	if base == "" {
		return nil, ErrInvalidName
	}

	org := &domain.Organization{Name: name}

	run := saga.New(
		saga.Step{
			Name: "organization",
			Do: func(ctx context.Context) error {
				return s.insertWithUniqueSlug(ctx, org, base)
			},
			Compensate: func(ctx context.Context) error {
				return s.repo.DeleteOrganization(ctx, org.ID)
			},
		},
		saga.Step{
			Name: "owner-membership",
			Do: func(ctx context.Context) error {
				return s.repo.CreateMembership(ctx, &domain.Membership{
					OrganizationID: org.ID,
					UserID:         ownerUserID,
					Role:           domain.RoleAdmin,
				})
			},
		},
	)

	if err := run.Run(ctx); err != nil {
		if errors.Is(err, saga.ErrCompensationFailed) {
			ctxlog.FromContext(ctx).Error("organization left without members",
				"organization_id", org.ID,
				"slug", org.Slug,
				"error", err,
			)
		}
		return nil, fmt.Errorf("create organization: %w", err)
	}

	ctxlog.FromContext(ctx).Info("organization created",
		"organization_id", org.ID,
		"slug", org.Slug,
		"owner_id", ownerUserID,
	)
	return org, nil
}

// insertWithUniqueSlug tries base, base-1, base-2 ... until an insert
// succeeds. The existence read skips known collisions; the unique
// constraint decides races between concurrent creators.
func (s *Service) insertWithUniqueSlug(ctx context.Context, org *domain.Organization, base string) error {
	_, err := retry.Bounded(ctx, s.slugAttempts,
		func(n int) string { return slug.Candidate(base, n) },
		func(ctx context.Context, candidate string) error {
			exists, err := s.repo.SlugExists(ctx, candidate)
			if err != nil {
				return err
			}
			if exists {
				return ErrSlugTaken
			}
			org.Slug = candidate
			return s.repo.CreateOrganization(ctx, org)
		},
		func(err error) bool { return errors.Is(err, ErrSlugTaken) },
	)
	if errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w: %w", ErrSlugExhausted, err)
	}
	return err
}

// GetOrganizationBySlug resolves a public organization.
func (s *Service) GetOrganizationBySlug(ctx context.Context, orgSlug string) (*domain.Organization, error) {
	return s.repo.GetOrganizationBySlug(ctx, orgSlug)
}

// ListMyOrganizations returns every organization the user belongs to.
func (s *Service) ListMyOrganizations(ctx context.Context, userID string) ([]domain.OrganizationMembership, error) {
	return s.repo.ListUserOrganizations(ctx, userID)
}

// ListOrphanOrganizations returns organizations without any membership.
func (s *Service) ListOrphanOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return s.repo.ListOrphanOrganizations(ctx)
}

// Authorize returns the caller's role in the organization if it permits action.
func (s *Service) Authorize(ctx context.Context, orgID, userID string, action authz.Action) (domain.Role, error) {
	return s.AuthorizeRoles(ctx, orgID, userID, authz.RolesFor(action)...)
}

// AuthorizeRoles returns the caller's role in the organization if it is one of roles.
func (s *Service) AuthorizeRoles(ctx context.Context, orgID, userID string, roles ...domain.Role) (domain.Role, error) {
	m, err := s.repo.GetMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return "", authz.ErrForbidden
		}
		return "", fmt.Errorf("get membership: %w", err)
	}

	for _, r := range roles {
		if m.Role == r {
			return m.Role, nil
		}
	}
	return "", authz.ErrForbidden
}

// ListMembers returns the members of an organization with their profiles.
func (s *Service) ListMembers(ctx context.Context, orgID, actorID string) ([]domain.Member, error) {
	if _, err := s.Authorize(ctx, orgID, actorID, authz.ActionMembersRead); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, orgID)
}

// AddMember grants the user registered under email a role in the organization.
func (s *Service) AddMember(ctx context.Context, orgID, actorID, email string, role domain.Role) (*domain.Member, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if _, err := s.Authorize(ctx, orgID, actorID, authz.ActionMembersManage); err != nil {
		return nil, err
	}

	profile, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrProfileNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	_, err = s.repo.GetMembership(ctx, orgID, profile.ID)
	switch {
	case err == nil:
		return nil, ErrAlreadyMember
	case !errors.Is(err, ErrMemberNotFound):
		return nil, fmt.Errorf("get membership: %w", err)
	}

	m := &domain.Membership{
		OrganizationID: orgID,
		UserID:         profile.ID,
		Role:           role,
	}
	if err := s.repo.CreateMembership(ctx, m); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("member added",
		"organization_id", orgID,
		"user_id", profile.ID,
		"role", role,
		"actor_id", actorID,
	)
	return &domain.Member{Membership: *m, Email: profile.Email, FullName: profile.FullName}, nil
}

// UpdateRole changes the role of a membership.
func (s *Service) UpdateRole(ctx context.Context, orgID, actorID, memberID string, role domain.Role) (*domain.Membership, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if _, err := s.Authorize(ctx, orgID, actorID, authz.ActionMembersManage); err != nil {
		return nil, err
	}

	m, err := s.repo.UpdateMembershipRole(ctx, orgID, memberID, role)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("member role updated",
		"organization_id", orgID,
		"member_id", memberID,
		"role", role,
		"actor_id", actorID,
	)
	return m, nil
}

// RemoveMember deletes a membership. Admins cannot remove themselves.
func (s *Service) RemoveMember(ctx context.Context, orgID, actorID, memberID string) error {
	if _, err := s.Authorize(ctx, orgID, actorID, authz.ActionMembersManage); err != nil {
		return err
	}

	m, err := s.repo.GetMembershipByID(ctx, orgID, memberID)
	if err != nil {
		return err
	}
	if m.UserID == actorID {
		return ErrSelfRemoval
	}

	if err := s.repo.DeleteMembership(ctx, orgID, memberID); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("member removed",
		"organization_id", orgID,
		"member_id", memberID,
		"actor_id", actorID,
	)
	return nil
}
