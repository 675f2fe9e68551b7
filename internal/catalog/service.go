package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/outager/outager/internal/authz"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/pkg/ctxlog"
)

// Authorizer checks organization-scoped permissions.
type Authorizer interface {
	Authorize(ctx context.Context, orgID, userID string, action authz.Action) (domain.Role, error)
}

// Broadcaster pushes state changes to real-time subscribers.
type Broadcaster interface {
	Publish(organizationID string, event domain.RealtimeEvent, payload any)
}

// Service implements catalog business logic.
type Service struct {
	repo        Repository
	authz       Authorizer
	broadcaster Broadcaster
}

// NewService creates a new catalog service.
func NewService(repo Repository, authorizer Authorizer, broadcaster Broadcaster) *Service {
	return &Service{
		repo:        repo,
		authz:       authorizer,
		broadcaster: broadcaster,
	}
}

// CreateServiceInput holds data for creating a service.
type CreateServiceInput struct {
	Name         string
	Description  *string
	DisplayOrder *int
}

// ListServices returns the services of an organization by display order.
func (s *Service) ListServices(ctx context.Context, orgID string) ([]domain.Service, error) {
	return s.repo.ListServices(ctx, orgID)
}

// GetService returns a single service.
func (s *Service) GetService(ctx context.Context, id string) (*domain.Service, error) {
	return s.repo.GetServiceByID(ctx, id)
}

// CreateService creates an operational service in the organization.
func (s *Service) CreateService(ctx context.Context, orgID, actorID string, input CreateServiceInput) (*domain.Service, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if _, err := s.authz.Authorize(ctx, orgID, actorID, authz.ActionServiceCreate); err != nil {
		return nil, err
	}

	service := &domain.Service{
		OrganizationID: orgID,
		Name:           name,
		Description:    input.Description,
		Status:         domain.ServiceStatusOperational,
	}
	if err := s.repo.CreateService(ctx, service, input.DisplayOrder); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	ctxlog.FromContext(ctx).Info("service created",
		"organization_id", orgID,
		"service_id", service.ID,
		"actor_id", actorID,
	)
	return service, nil
}

// UpdateStatus sets the status of a service and notifies subscribers of
// its organization.
func (s *Service) UpdateStatus(ctx context.Context, serviceID, actorID string, status domain.ServiceStatus) (*domain.Service, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	existing, err := s.repo.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authz.Authorize(ctx, existing.OrganizationID, actorID, authz.ActionServiceUpdateStatus); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateServiceStatus(ctx, serviceID, status)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("service status updated",
		"organization_id", updated.OrganizationID,
		"service_id", serviceID,
		"from", existing.Status,
		"to", status,
		"actor_id", actorID,
	)

	s.broadcaster.Publish(updated.OrganizationID, domain.RealtimeServiceUpdated, updated)
	return updated, nil
}

// DeleteService removes a service. Links from incidents go with it.
func (s *Service) DeleteService(ctx context.Context, serviceID, actorID string) error {
	existing, err := s.repo.GetServiceByID(ctx, serviceID)
	if err != nil {
		return err
	}

	if _, err := s.authz.Authorize(ctx, existing.OrganizationID, actorID, authz.ActionServiceDelete); err != nil {
		return err
	}

	if err := s.repo.DeleteService(ctx, serviceID); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("service deleted",
		"organization_id", existing.OrganizationID,
		"service_id", serviceID,
		"actor_id", actorID,
	)
	return nil
}
