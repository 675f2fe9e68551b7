package domain

import "time"

// IncidentStatus is a state of the incident lifecycle.
type IncidentStatus string

// Incident statuses. Resolved is terminal.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusInvestigating, IncidentStatusIdentified,
		IncidentStatusMonitoring, IncidentStatusResolved:
		return true
	}
	return false
}

// IsResolved reports whether the status is the terminal one.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusResolved
}

// Incident is a reported issue. Status always mirrors the latest update;
// ResolvedAt is set iff Status is resolved.
type Incident struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Title          string         `json:"title"`
	Status         IncidentStatus `json:"status"`
	CreatedBy      string         `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ResolvedAt     *time.Time     `json:"resolved_at"`
}

// IncidentUpdate is one append-only entry of an incident timeline.
type IncidentUpdate struct {
	ID         string         `json:"id"`
	IncidentID string         `json:"incident_id"`
	Message    string         `json:"message"`
	Status     IncidentStatus `json:"status"`
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
}

// LinkedService is a service referenced by an incident.
type LinkedService struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
}

// IncidentWithDetails is the incident read model: the incident with its
// timeline in chronological order and the services it affects.
type IncidentWithDetails struct {
	Incident
	Updates  []IncidentUpdate `json:"updates"`
	Services []LinkedService  `json:"services"`
}

// LatestUpdate returns the most recent update, or nil for an empty timeline.
func (i *IncidentWithDetails) LatestUpdate() *IncidentUpdate {
	if len(i.Updates) == 0 {
		return nil
	}
	return &i.Updates[len(i.Updates)-1]
}
