package statuspage

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/outager/outager/internal/organizations"
	"github.com/outager/outager/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: organizations.ErrOrganizationNotFound, Status: http.StatusNotFound, Message: "status page not found"},
}

// Handler serves public status pages.
type Handler struct {
	service *Service
}

// NewHandler creates a new status page handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registers routes readable without authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/status/{slug}", h.GetSummary)
}

// GetSummary handles GET /status/{slug}.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, summary)
}
