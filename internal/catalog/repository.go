package catalog

import (
	"context"

	"github.com/outager/outager/internal/domain"
)

// Repository defines the interface for catalog data operations.
type Repository interface {
	// CreateService inserts a service. A nil displayOrder places the
	// service after every existing one in its organization.
	CreateService(ctx context.Context, service *domain.Service, displayOrder *int) error
	GetServiceByID(ctx context.Context, id string) (*domain.Service, error)
	ListServices(ctx context.Context, orgID string) ([]domain.Service, error)
	UpdateServiceStatus(ctx context.Context, id string, status domain.ServiceStatus) (*domain.Service, error)
	DeleteService(ctx context.Context, id string) error
}
