package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func requestWithParam(name, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUUIDParam_Valid(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := UUIDParam(rec, requestWithParam("orgId", "6F9619FF-8B86-D011-B42D-00CF4FC964FF"), "orgId")

	assert.True(t, ok)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00cf4fc964ff", id)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUUIDParam_Invalid(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := UUIDParam(rec, requestWithParam("orgId", "acme"), "orgId")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid orgId")
}
