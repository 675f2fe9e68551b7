package httputil

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UUIDParam returns the named URL parameter if it is a well-formed UUID.
// On failure it writes a 400 response and returns false.
func UUIDParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return id.String(), true
}
