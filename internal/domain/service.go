package domain

import "time"

// ServiceStatus represents the operational status of a service.
type ServiceStatus string

// Service statuses.
const (
	ServiceStatusOperational   ServiceStatus = "operational"
	ServiceStatusDegraded      ServiceStatus = "degraded"
	ServiceStatusPartialOutage ServiceStatus = "partial_outage"
	ServiceStatusMajorOutage   ServiceStatus = "major_outage"
)

// IsValid checks if the service status is valid.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusOperational, ServiceStatusDegraded,
		ServiceStatusPartialOutage, ServiceStatusMajorOutage:
		return true
	}
	return false
}

// Severity orders statuses from operational (0) to major_outage (3).
// Unknown statuses rank below operational.
func (s ServiceStatus) Severity() int {
	switch s {
	case ServiceStatusOperational:
		return 0
	case ServiceStatusDegraded:
		return 1
	case ServiceStatusPartialOutage:
		return 2
	case ServiceStatusMajorOutage:
		return 3
	}
	return -1
}

// Worse returns the more severe of s and other.
func (s ServiceStatus) Worse(other ServiceStatus) ServiceStatus {
	if other.Severity() > s.Severity() {
		return other
	}
	return s
}

// Service represents a monitored service owned by one organization.
type Service struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id"`
	Name           string        `json:"name"`
	Description    *string       `json:"description"`
	Status         ServiceStatus `json:"status"`
	DisplayOrder   int           `json:"display_order"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
