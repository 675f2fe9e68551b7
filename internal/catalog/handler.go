// Package catalog provides HTTP handlers and business logic for managing services.
package catalog

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
	{Error: ErrServiceNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidName, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for the catalog module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterPublicRoutes registers routes readable without authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/services/organization/{orgId}", h.ListServices)
	r.Get("/services/{serviceId}", h.GetService)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/services/{orgId}", h.CreateService)
	r.Patch("/services/{serviceId}/status", h.UpdateStatus)
	r.Delete("/services/{serviceId}", h.DeleteService)
}

// CreateServiceRequest represents the request body for creating a service.
type CreateServiceRequest struct {
	Name         string  `json:"name" validate:"required,min=1,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	DisplayOrder *int    `json:"display_order" validate:"omitempty,min=0"`
}

// UpdateStatusRequest represents the request body for changing a service status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=operational degraded partial_outage major_outage"`
}

// ListServices handles GET /services/organization/{orgId}.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}

	services, err := h.service.ListServices(r.Context(), orgID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, services)
}

// GetService handles GET /services/{serviceId}.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := httputil.UUIDParam(w, r, "serviceId")
	if !ok {
		return
	}

	service, err := h.service.GetService(r.Context(), serviceID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// CreateService handles POST /services/{orgId}.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}

	var req CreateServiceRequest
	if !httputil.Bind(w, r, h.validator, &req) {
		return
	}

	service, err := h.service.CreateService(context.WithoutCancel(r.Context()), orgID, httputil.GetUserID(r.Context()),
		CreateServiceInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, service)
}

// UpdateStatus handles PATCH /services/{serviceId}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := httputil.UUIDParam(w, r, "serviceId")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !httputil.Bind(w, r, h.validator, &req) {
		return
	}

	service, err := h.service.UpdateStatus(context.WithoutCancel(r.Context()), serviceID, httputil.GetUserID(r.Context()),
		domain.ServiceStatus(req.Status))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// DeleteService handles DELETE /services/{serviceId}.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := httputil.UUIDParam(w, r, "serviceId")
	if !ok {
		return
	}

	if err := h.service.DeleteService(context.WithoutCancel(r.Context()), serviceID, httputil.GetUserID(r.Context())); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.NoContent(w)
}
