package incidents

import (
	"context"

	"github.com/outager/outager/internal/domain"
)

// Repository defines the interface for incident storage. Every method is a
// single statement; callers sequence them without a transaction.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	// CreateUpdate appends to the timeline of an open incident without
	// changing its status. It returns ErrIncidentResolved when the incident
	// is already resolved.
	CreateUpdate(ctx context.Context, update *domain.IncidentUpdate) error
	// LinkService returns ErrServiceNotFound unless the service exists in
	// the incident's organization.
	LinkService(ctx context.Context, incidentID, serviceID string) error
	// AppendUpdate atomically appends update and sets the incident status to
	// update.Status, stamping resolved_at when it is resolved. Appends to the
	// same incident are serialized; once resolved it returns
	// ErrIncidentResolved.
	AppendUpdate(ctx context.Context, update *domain.IncidentUpdate) (*domain.Incident, error)

	GetIncident(ctx context.Context, orgID, incidentID string) (*domain.IncidentWithDetails, error)
	ListIncidents(ctx context.Context, orgID string) ([]domain.IncidentWithDetails, error)
}
