package organizations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service, userID string) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(httputil.WithUserID(req.Context(), userID)))
			})
		})
		h.RegisterProtectedRoutes(r)
	})
	return r
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateAndResolveBySlug(t *testing.T) {
	repo := newMemRepository()
	router := newTestRouter(newTestService(repo), "owner")

	rec := doRequest(router, http.MethodPost, "/organizations", `{"name":"Acme Inc"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data domain.Organization `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "acme-inc", created.Data.Slug)

	rec = doRequest(router, http.MethodGet, "/organizations/slug/acme-inc", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/organizations/slug/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CreateValidation(t *testing.T) {
	router := newTestRouter(newTestService(newMemRepository()), "owner")

	rec := doRequest(router, http.MethodPost, "/organizations", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation error")

	rec = doRequest(router, http.MethodPost, "/organizations", `{"name":"!!!"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/organizations", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid json")
}

func TestHandler_TeamErrors(t *testing.T) {
	repo := newMemRepository()
	orgID := uuid.NewString()
	adminMembership := repo.addMember(t, orgID, "admin", domain.RoleAdmin)
	repo.addMember(t, orgID, "viewer", domain.RoleViewer)
	repo.addProfile("bob", "bob@example.com")

	admin := newTestRouter(newTestService(repo), "admin")
	viewer := newTestRouter(newTestService(repo), "viewer")

	rec := doRequest(admin, http.MethodDelete, "/teams/"+orgID+"/members/"+adminMembership, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "you cannot remove yourself")

	rec = doRequest(viewer, http.MethodPost, "/teams/"+orgID+"/members", `{"email":"bob@example.com","role":"member"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(admin, http.MethodPost, "/teams/"+orgID+"/members", `{"email":"bob@example.com","role":"member"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(admin, http.MethodPost, "/teams/"+orgID+"/members", `{"email":"bob@example.com","role":"member"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(admin, http.MethodPost, "/teams/"+orgID+"/members", `{"email":"bob@example.com","role":"owner"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(admin, http.MethodGet, "/teams/not-a-uuid/members", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(viewer, http.MethodGet, "/teams/"+orgID+"/members", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
