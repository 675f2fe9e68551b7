package incidents

import "errors"

// Incident ledger errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrServiceNotFound  = errors.New("affected service not found in this organization")
	ErrIncidentResolved = errors.New("incident is already resolved")
	ErrInvalidStatus    = errors.New("invalid incident status")
	ErrInvalidIncident  = errors.New("title and message are required")
)
