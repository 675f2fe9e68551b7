// Package statuspage renders the public view of an organization: its
// services, incidents and the overall status derived from both.
package statuspage

import (
	"strings"

	"github.com/outager/outager/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OverallStatus derives the organization-wide status. Any unresolved
// incident forces major_outage; otherwise the worst service status wins.
// An organization without services is operational.
func OverallStatus(services []domain.Service, incidents []domain.IncidentWithDetails) domain.ServiceStatus {
	for _, incident := range incidents {
		if !incident.Status.IsResolved() {
			return domain.ServiceStatusMajorOutage
		}
	}

	overall := domain.ServiceStatusOperational
	for _, s := range services {
		overall = overall.Worse(s.Status)
	}
	return overall
}

var labelOverrides = map[string]string{
	string(domain.ServiceStatusDegraded): "Degraded Performance",
}

// Label turns a status value into a display label, e.g.
// "partial_outage" into "Partial Outage".
func Label[S ~string](status S) string {
	if label, ok := labelOverrides[string(status)]; ok {
		return label
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(status), "_", " "))
}

// Headline summarizes the overall status in one sentence.
func Headline(overall domain.ServiceStatus) string {
	if overall == domain.ServiceStatusOperational {
		return "All Systems Operational"
	}
	return "System Issues Detected"
}
