// Package postgres provides PostgreSQL implementation of the catalog repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/outager/outager/internal/catalog"
	"github.com/outager/outager/internal/domain"
)

const serviceColumns = `id, organization_id, name, description, status, display_order, created_at, updated_at`

// Repository implements the catalog.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateService creates a new service in the database.
func (r *Repository) CreateService(ctx context.Context, service *domain.Service, displayOrder *int) error {
	query := `
		INSERT INTO services (organization_id, name, description, status, display_order)
		VALUES ($1, $2, $3, $4, COALESCE($5,
			(SELECT COALESCE(MAX(display_order), -1) + 1 FROM services WHERE organization_id = $1)))
		RETURNING id, display_order, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		service.OrganizationID,
		service.Name,
		service.Description,
		service.Status,
		displayOrder,
	).Scan(&service.ID, &service.DisplayOrder, &service.CreatedAt, &service.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// GetServiceByID retrieves a service by its ID.
func (r *Repository) GetServiceByID(ctx context.Context, id string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	service, err := scanService(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service by id: %w", err)
	}
	return service, nil
}

// ListServices retrieves the services of an organization by display order.
func (r *Repository) ListServices(ctx context.Context, orgID string) ([]domain.Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE organization_id = $1
		ORDER BY display_order, created_at, id
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *service)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return services, nil
}

// UpdateServiceStatus sets the status of a service and returns the updated row.
func (r *Repository) UpdateServiceStatus(ctx context.Context, id string, status domain.ServiceStatus) (*domain.Service, error) {
	query := `
		UPDATE services
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + serviceColumns

	service, err := scanService(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("update service status: %w", err)
	}
	return service, nil
}

// DeleteService deletes a service by its ID.
func (r *Repository) DeleteService(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	if result.RowsAffected() == 0 {
		return catalog.ErrServiceNotFound
	}
	return nil
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var s domain.Service
	err := row.Scan(
		&s.ID,
		&s.OrganizationID,
		&s.Name,
		&s.Description,
		&s.Status,
		&s.DisplayOrder,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
