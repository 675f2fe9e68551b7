//go:build integration

package app_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/statuspage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPage_Summary(t *testing.T) {
	admin := newUser(t, "admin")
	org := createOrganization(t, admin, "Public "+uuid.NewString()[:8])
	api := createService(t, admin, org.ID, "API")
	createService(t, admin, org.ID, "Website")

	resp, err := newTestClient(t).GET("/api/v1/status/" + org.Slug)
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusOK)
	summary := decode[statuspage.Summary](t, resp)
	assert.Equal(t, domain.ServiceStatusOperational, summary.OverallStatus)
	assert.Equal(t, "All Systems Operational", summary.Headline)
	assert.Len(t, summary.Services, 2)
	assert.Empty(t, summary.ActiveIncidents)

	resp, err = newTestClient(t).As(admin).PATCH("/api/v1/services/"+api.ID+"/status", map[string]any{"status": "degraded"})
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()

	resp, err = newTestClient(t).GET("/api/v1/status/" + org.Slug)
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusOK)
	summary = decode[statuspage.Summary](t, resp)
	assert.Equal(t, domain.ServiceStatusDegraded, summary.OverallStatus)
	assert.Equal(t, "Degraded Performance", summary.OverallLabel)
	assert.Equal(t, "System Issues Detected", summary.Headline)

	createIncident(t, admin, org.ID, "Slow API", api.ID)

	resp, err = newTestClient(t).GET("/api/v1/status/" + org.Slug)
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusOK)
	summary = decode[statuspage.Summary](t, resp)
	assert.Equal(t, domain.ServiceStatusMajorOutage, summary.OverallStatus)
	assert.Equal(t, "Major Outage", summary.OverallLabel)
	require.Len(t, summary.ActiveIncidents, 1)
	assert.Equal(t, "Investigating", summary.ActiveIncidents[0].StatusLabel)
	require.Len(t, summary.ActiveIncidents[0].Services, 1)
	assert.Equal(t, api.ID, summary.ActiveIncidents[0].Services[0].ServiceID)
}

func TestStatusPage_UnknownSlug(t *testing.T) {
	resp, err := newTestClient(t).GET("/api/v1/status/missing-" + uuid.NewString()[:8])
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusNotFound)
	assert.Equal(t, "status page not found", errorMessage(t, resp))
}
