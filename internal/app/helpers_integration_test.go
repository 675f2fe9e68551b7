//go:build integration

package app_test

import (
	"net/http"
	"testing"

	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/testutil"
	"github.com/stretchr/testify/require"
)

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out envelope[T]
	testutil.DecodeJSON(t, resp, &out)
	return out.Data
}

func requireStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		require.Equal(t, status, resp.StatusCode, testutil.ReadBody(t, resp))
	}
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var out errorEnvelope
	testutil.DecodeJSON(t, resp, &out)
	return out.Error.Message
}

func createOrganization(t *testing.T, owner testutil.User, name string) domain.Organization {
	t.Helper()
	resp, err := newTestClient(t).As(owner).POST("/api/v1/organizations", map[string]any{"name": name})
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusCreated)
	return decode[domain.Organization](t, resp)
}

func addMember(t *testing.T, admin testutil.User, orgID string, user testutil.User, role domain.Role) domain.Member {
	t.Helper()
	resp, err := newTestClient(t).As(admin).POST("/api/v1/teams/"+orgID+"/members", map[string]any{
		"email": user.Email,
		"role":  role,
	})
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusCreated)
	return decode[domain.Member](t, resp)
}

func createService(t *testing.T, actor testutil.User, orgID, name string) domain.Service {
	t.Helper()
	resp, err := newTestClient(t).As(actor).POST("/api/v1/services/"+orgID, map[string]any{"name": name})
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusCreated)
	return decode[domain.Service](t, resp)
}

func createIncident(t *testing.T, actor testutil.User, orgID, title string, serviceIDs ...string) domain.IncidentWithDetails {
	t.Helper()
	body := map[string]any{"title": title, "message": "We are investigating."}
	if len(serviceIDs) > 0 {
		body["affected_services"] = serviceIDs
	}
	resp, err := newTestClient(t).As(actor).POST("/api/v1/incidents/"+orgID, body)
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusCreated)
	return decode[domain.IncidentWithDetails](t, resp)
}
