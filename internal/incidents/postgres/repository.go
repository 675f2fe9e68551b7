// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/incidents"
	"github.com/outager/outager/internal/pkg/postgres"
)

const incidentColumns = `id, organization_id, title, status, created_by, created_at, updated_at, resolved_at`

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateIncident inserts an incident.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (organization_id, title, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		incident.OrganizationID,
		incident.Title,
		incident.Status,
		incident.CreatedBy,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// CreateUpdate inserts an update without touching the incident status.
// It is used for the first update of a new incident.
func (r *Repository) CreateUpdate(ctx context.Context, update *domain.IncidentUpdate) error {
	query := `
		INSERT INTO incident_updates (incident_id, message, status, created_by)
		SELECT i.id, $2, $3, $4
		FROM incidents i
		WHERE i.id = $1 AND i.status <> 'resolved'
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		update.IncidentID,
		update.Message,
		update.Status,
		update.CreatedBy,
	).Scan(&update.ID, &update.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.whyNoUpdate(ctx, update.IncidentID)
		}
		return fmt.Errorf("create incident update: %w", err)
	}
	return nil
}

func (r *Repository) whyNoUpdate(ctx context.Context, incidentID string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1)`, incidentID).Scan(&exists); err != nil {
		return fmt.Errorf("check incident: %w", err)
	}
	if !exists {
		return incidents.ErrIncidentNotFound
	}
	return incidents.ErrIncidentResolved
}

// LinkService links a service of the incident's organization to the incident.
func (r *Repository) LinkService(ctx context.Context, incidentID, serviceID string) error {
	query := `
		INSERT INTO incident_services (incident_id, service_id)
		SELECT i.id, s.id
		FROM incidents i
		JOIN services s ON s.organization_id = i.organization_id
		WHERE i.id = $1 AND s.id = $2
		ON CONFLICT DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, incidentID, serviceID)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return incidents.ErrServiceNotFound
		}
		return fmt.Errorf("link service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return incidents.ErrServiceNotFound
	}
	return nil
}

// AppendUpdate appends an update and moves the incident to its status in one
// statement. The incident row is locked first, so concurrent appends are
// applied one after another and none lands after a resolution.
func (r *Repository) AppendUpdate(ctx context.Context, update *domain.IncidentUpdate) (*domain.Incident, error) {
	query := `
		WITH locked AS (
			SELECT id
			FROM incidents
			WHERE id = $1 AND status <> 'resolved'
			FOR UPDATE
		), appended AS (
			INSERT INTO incident_updates (incident_id, message, status, created_by)
			SELECT id, $2, $3, $4
			FROM locked
			RETURNING id, incident_id, status, created_at
		)
		UPDATE incidents i
		SET status = appended.status,
			resolved_at = CASE WHEN appended.status = 'resolved' THEN NOW() END,
			updated_at = NOW()
		FROM appended
		WHERE i.id = appended.incident_id
		RETURNING appended.id, appended.created_at,
			i.id, i.organization_id, i.title, i.status, i.created_by, i.created_at, i.updated_at, i.resolved_at
	`
	var incident domain.Incident
	err := r.db.QueryRow(ctx, query,
		update.IncidentID,
		update.Message,
		update.Status,
		update.CreatedBy,
	).Scan(
		&update.ID,
		&update.CreatedAt,
		&incident.ID,
		&incident.OrganizationID,
		&incident.Title,
		&incident.Status,
		&incident.CreatedBy,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.whyNoUpdate(ctx, update.IncidentID)
		}
		return nil, fmt.Errorf("append incident update: %w", err)
	}
	return &incident, nil
}

// GetIncident loads one incident of the organization with its timeline and services.
func (r *Repository) GetIncident(ctx context.Context, orgID, incidentID string) (*domain.IncidentWithDetails, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE organization_id = $1 AND id = $2`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, orgID, incidentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}

	details := []domain.IncidentWithDetails{{Incident: *incident}}
	if err := r.attachDetails(ctx, details); err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListIncidents loads the incidents of an organization, newest first.
func (r *Repository) ListIncidents(ctx context.Context, orgID string) ([]domain.IncidentWithDetails, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE organization_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	result := make([]domain.IncidentWithDetails, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, domain.IncidentWithDetails{Incident: *incident})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	if err := r.attachDetails(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachDetails loads updates and linked services for all incidents with
// one query each.
func (r *Repository) attachDetails(ctx context.Context, list []domain.IncidentWithDetails) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = i
		list[i].Updates = make([]domain.IncidentUpdate, 0)
		list[i].Services = make([]domain.LinkedService, 0)
	}

	updatesQuery := `
		SELECT id, incident_id, message, status, created_by, created_at
		FROM incident_updates
		WHERE incident_id = ANY($1::uuid[])
		ORDER BY created_at, seq
	`
	rows, err := r.db.Query(ctx, updatesQuery, ids)
	if err != nil {
		return fmt.Errorf("list incident updates: %w", err)
	}
	for rows.Next() {
		var u domain.IncidentUpdate
		if err := rows.Scan(&u.ID, &u.IncidentID, &u.Message, &u.Status, &u.CreatedBy, &u.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan incident update: %w", err)
		}
		i := index[u.IncidentID]
		list[i].Updates = append(list[i].Updates, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate incident updates: %w", err)
	}

	servicesQuery := `
		SELECT l.incident_id, s.id, s.name
		FROM incident_services l
		JOIN services s ON s.id = l.service_id
		WHERE l.incident_id = ANY($1::uuid[])
		ORDER BY s.display_order, s.name
	`
	rows, err = r.db.Query(ctx, servicesQuery, ids)
	if err != nil {
		return fmt.Errorf("list incident services: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var incidentID string
		var s domain.LinkedService
		if err := rows.Scan(&incidentID, &s.ServiceID, &s.Name); err != nil {
			return fmt.Errorf("scan incident service: %w", err)
		}
		i := index[incidentID]
		list[i].Services = append(list[i].Services, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate incident services: %w", err)
	}
	return nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var i domain.Incident
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.Title,
		&i.Status,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
