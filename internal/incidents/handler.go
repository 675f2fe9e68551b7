// Package incidents provides the incident lifecycle: incidents, their
// timeline of updates and the services they affect.
package incidents

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/outager/outager/internal/authz"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: authz.ErrForbidden, Status: http.StatusForbidden},
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrServiceNotFound, Status: http.StatusNotFound},
	{Error: ErrIncidentResolved, Status: http.StatusConflict},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidIncident, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterPublicRoutes registers routes readable without authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/incidents/organization/{orgId}", h.ListIncidents)
	r.Get("/incidents/{orgId}/{incidentId}", h.GetIncident)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/incidents/{orgId}", h.CreateIncident)
	r.Post("/incidents/{orgId}/{incidentId}/updates", h.AddUpdate)
}

// CreateIncidentRequest represents the request body for opening an incident.
type CreateIncidentRequest struct {
	Title            string   `json:"title" validate:"required,min=1,max=500"`
	Message          string   `json:"message" validate:"required,min=1"`
	AffectedServices []string `json:"affected_services" validate:"omitempty,dive,uuid"`
}

// AddUpdateRequest represents the request body for an incident update.
type AddUpdateRequest struct {
	Message string `json:"message" validate:"required,min=1"`
	Status  string `json:"status" validate:"required,oneof=investigating identified monitoring resolved"`
}

// ListIncidents handles GET /incidents/organization/{orgId}.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}

	incidents, err := h.service.ListIncidents(r.Context(), orgID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incidents)
}

// GetIncident handles GET /incidents/{orgId}/{incidentId}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}
	incidentID, ok := httputil.UUIDParam(w, r, "incidentId")
	if !ok {
		return
	}

	incident, err := h.service.GetIncident(r.Context(), orgID, incidentID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// CreateIncident handles POST /incidents/{orgId}.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}

	var req CreateIncidentRequest
	if !httputil.Bind(w, r, h.validator, &req) {
		return
	}

	incident, err := h.service.CreateIncident(context.WithoutCancel(r.Context()), orgID, httputil.GetUserID(r.Context()),
		CreateIncidentInput{
			Title:      req.Title,
			Message:    req.Message,
			ServiceIDs: req.AffectedServices,
		})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// AddUpdate handles POST /incidents/{orgId}/{incidentId}/updates.
func (h *Handler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}
	incidentID, ok := httputil.UUIDParam(w, r, "incidentId")
	if !ok {
		return
	}

	var req AddUpdateRequest
	if !httputil.Bind(w, r, h.validator, &req) {
		return
	}

	incident, err := h.service.AddUpdate(context.WithoutCancel(r.Context()), orgID, incidentID, httputil.GetUserID(r.Context()),
		AddUpdateInput{
			Message: req.Message,
			Status:  domain.IncidentStatus(req.Status),
		})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}
