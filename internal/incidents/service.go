package incidents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

// Service implements incident lifecycle business logic.
type Service struct {
	repo        Repository
	authz       Authorizer
	broadcaster Broadcaster
}

// NewService creates a new incident service.
func NewService(repo Repository, authorizer Authorizer, broadcaster Broadcaster) *Service {
	return &Service{
		repo:        repo,
		authz:       authorizer,
		broadcaster: broadcaster,
	}
}

// CreateIncidentInput holds data for opening an incident.
type CreateIncidentInput struct {
	Title      string
	Message    string
	ServiceIDs []string
}

// AddUpdateInput holds data for a timeline entry.
type AddUpdateInput struct {
	Message string
	Status  domain.IncidentStatus
}

// CreateIncident opens an investigating incident with its first update and
// links the affected services. Rows written before a failing step are kept.
func (s *Service) CreateIncident(ctx context.Context, orgID, actorID string, input CreateIncidentInput) (*domain.IncidentWithDetails, error) {
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, ErrInvalidIncident
	}

	if _, err := s.authz.Authorize(ctx, orgID, actorID, authz.ActionIncidentCreate); err != nil {
		return nil, err
	}

	incident := &domain.Incident{
		OrganizationID: orgID,
		Title:          title,
		Status:         domain.IncidentStatusInvestigating,
		CreatedBy:      actorID,
	}
	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	update := &domain.IncidentUpdate{
		IncidentID: incident.ID,
		Message:    message,
		Status:     domain.IncidentStatusInvestigating,
		CreatedBy:  actorID,
	}
	if err := s.repo.CreateUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("create first update: %w", err)
	}

	for _, serviceID := range normalizeServiceIDs(input.ServiceIDs) {
		if err := s.repo.LinkService(ctx, incident.ID, serviceID); err != nil {
			ctxlog.FromContext(ctx).Warn("incident created without all services linked",
				"incident_id", incident.ID,
				"service_id", serviceID,
				"error", err,
			)
			return nil, fmt.Errorf("link service %s: %w", serviceID, err)
		}
	}

	details, err := s.repo.GetIncident(ctx, orgID, incident.ID)
	if err != nil {
		return nil, fmt.Errorf("reload incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident created",
		"organization_id", orgID,
		"incident_id", incident.ID,
		"services", len(details.Services),
		"actor_id", actorID,
	)

	s.broadcaster.Publish(orgID, domain.RealtimeIncidentCreated, details)
	return details, nil
}

// AddUpdate appends a timeline entry and moves the incident to its status.
// Resolved incidents accept no further updates.
func (s *Service) AddUpdate(ctx context.Context, orgID, incidentID, actorID string, input AddUpdateInput) (*domain.IncidentWithDetails, error) {
	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrInvalidIncident
	}

	if _, err := s.authz.Authorize(ctx, orgID, actorID, authz.ActionIncidentUpdate); err != nil {
		return nil, err
	}

	current, err := s.repo.GetIncident(ctx, orgID, incidentID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsResolved() {
		return nil, ErrIncidentResolved
	}

	update := &domain.IncidentUpdate{
		IncidentID: incidentID,
		Message:    message,
		Status:     input.Status,
		CreatedBy:  actorID,
	}
	if _, err := s.repo.AppendUpdate(ctx, update); err != nil {
		return nil, err
	}

	details, err := s.repo.GetIncident(ctx, orgID, incidentID)
	if err != nil {
		return nil, fmt.Errorf("reload incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident updated",
		"organization_id", orgID,
		"incident_id", incidentID,
		"from", current.Status,
		"to", details.Status,
		"actor_id", actorID,
	)

	s.broadcaster.Publish(orgID, domain.RealtimeIncidentUpdated, details)
	return details, nil
}

// ListIncidents returns the incidents of an organization, newest first.
func (s *Service) ListIncidents(ctx context.Context, orgID string) ([]domain.IncidentWithDetails, error) {
	return s.repo.ListIncidents(ctx, orgID)
}

// GetIncident returns one incident with its timeline and services.
func (s *Service) GetIncident(ctx context.Context, orgID, incidentID string) (*domain.IncidentWithDetails, error) {
	return s.repo.GetIncident(ctx, orgID, incidentID)
}

// normalizeServiceIDs canonicalizes UUIDs to lower case and drops repeats,
// so the same service spelled in two cases is linked once.
func normalizeServiceIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if parsed, err := uuid.Parse(id); err == nil {
			id = parsed.String()
		}
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}
