package statuspage

import (
	"context"
	"fmt"

	"github.com/outager/outager/internal/domain"
)

// DefaultRecentIncidents is how many resolved incidents a summary shows.
const DefaultRecentIncidents = 5

// OrganizationResolver looks up public organizations.
type OrganizationResolver interface {
	GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error)
}

// ServiceLister lists the services of an organization.
type ServiceLister interface {
	ListServices(ctx context.Context, orgID string) ([]domain.Service, error)
}

// IncidentLister lists the incidents of an organization, newest first.
type IncidentLister interface {
	ListIncidents(ctx context.Context, orgID string) ([]domain.IncidentWithDetails, error)
}

// ServiceView is a service with its display label.
type ServiceView struct {
	domain.Service
	StatusLabel string `json:"status_label"`
}

// IncidentView is an incident with its display label.
type IncidentView struct {
	domain.IncidentWithDetails
	StatusLabel string `json:"status_label"`
}

// Summary is the public status page of one organization.
type Summary struct {
	Organization      domain.Organization  `json:"organization"`
	OverallStatus     domain.ServiceStatus `json:"overall_status"`
	OverallLabel      string               `json:"overall_label"`
	Headline          string               `json:"headline"`
	Services          []ServiceView        `json:"services"`
	ActiveIncidents   []IncidentView       `json:"active_incidents"`
	ResolvedIncidents []IncidentView       `json:"resolved_incidents"`
}

// Service composes public summaries from the catalog and the incident ledger.
type Service struct {
	orgs           OrganizationResolver
	services       ServiceLister
	incidents      IncidentLister
	recentResolved int
}

// NewService creates a new status page service.
func NewService(orgs OrganizationResolver, services ServiceLister, incidents IncidentLister, recentResolved int) *Service {
	if recentResolved <= 0 {
		recentResolved = DefaultRecentIncidents
	}
	return &Service{
		orgs:           orgs,
		services:       services,
		incidents:      incidents,
		recentResolved: recentResolved,
	}
}

// Summary builds the status page for the organization with slug.
func (s *Service) Summary(ctx context.Context, slug string) (*Summary, error) {
	org, err := s.orgs.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	services, err := s.services.ListServices(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	incidents, err := s.incidents.ListIncidents(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	overall := OverallStatus(services, incidents)
	summary := &Summary{
		Organization:      *org,
		OverallStatus:     overall,
		OverallLabel:      Label(overall),
		Headline:          Headline(overall),
		Services:          make([]ServiceView, 0, len(services)),
		ActiveIncidents:   make([]IncidentView, 0),
		ResolvedIncidents: make([]IncidentView, 0),
	}

	for _, svc := range services {
		summary.Services = append(summary.Services, ServiceView{Service: svc, StatusLabel: Label(svc.Status)})
	}

	for _, incident := range incidents {
		view := IncidentView{IncidentWithDetails: incident, StatusLabel: Label(incident.Status)}
		switch {
		case !incident.Status.IsResolved():
			summary.ActiveIncidents = append(summary.ActiveIncidents, view)
		case len(summary.ResolvedIncidents) < s.recentResolved:
			summary.ResolvedIncidents = append(summary.ResolvedIncidents, view)
		}
	}

	return summary, nil
}
