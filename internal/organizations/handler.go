package organizations

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
	{Error: ErrSlugExhausted, Status: http.StatusConflict, Message: "could not allocate a unique slug, choose another name"},
	{Error: ErrAlreadyMember, Status: http.StatusConflict},
	{Error: ErrOrganizationNotFound, Status: http.StatusNotFound},
	{Error: ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found, they must sign in at least once"},
	{Error: ErrMemberNotFound, Status: http.StatusNotFound},
	{Error: ErrSelfRemoval, Status: http.StatusBadRequest},
	{Error: ErrInvalidName, Status: http.StatusBadRequest},
	{Error: ErrInvalidRole, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for organizations and teams.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new organizations handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterPublicRoutes registers routes that need no authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/organizations/slug/{slug}", h.GetBySlug)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/organizations", h.Create)
	r.Get("/organizations/my-organizations", h.ListMine)

	r.Route("/teams/{orgId}/members", func(r chi.Router) {
		r.Get("/", h.ListMembers)
		r.Post("/", h.AddMember)
		r.Patch("/{memberId}", h.UpdateRole)
		r.Delete("/{memberId}", h.RemoveMember)
	})
}

// CreateOrganizationRequest represents request body for creating an organization.
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// AddMemberRequest represents request body for adding a member.
type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member viewer"`
}

// UpdateRoleRequest represents request body for changing a member's role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member viewer"`
}

// Create handles POST /organizations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	var req CreateOrganizationRequest
	if !httputil.Bind(w, r, h.validator, &req) {
		return
	}

	org, err := h.service.CreateOrganization(context.WithoutCancel(r.Context()), req.Name, userID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, org)
}

// ListMine handles GET /organizations/my-organizations.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	orgs, err := h.service.ListMyOrganizations(r.Context(), userID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, orgs)
}

// GetBySlug handles GET /organizations/slug/{slug}.
func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrganizationBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, org)
}

// ListMembers handles GET /teams/{orgId}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(r.Context(), orgID, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, members)
}

// AddMember handles POST /teams/{orgId}/members.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}

	var req AddMemberRequest
	if !httputil.Bind(w, r, h.validator, &req) {
		return
	}

	member, err := h.service.AddMember(context.WithoutCancel(r.Context()), orgID,
		httputil.GetUserID(r.Context()), req.Email, domain.Role(req.Role))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, member)
}

// UpdateRole handles PATCH /teams/{orgId}/members/{memberId}.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}
	memberID, ok := httputil.UUIDParam(w, r, "memberId")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !httputil.Bind(w, r, h.validator, &req) {
		return
	}

	m, err := h.service.UpdateRole(context.WithoutCancel(r.Context()), orgID,
		httputil.GetUserID(r.Context()), memberID, domain.Role(req.Role))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, m)
}

// RemoveMember handles DELETE /teams/{orgId}/members/{memberId}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.UUIDParam(w, r, "orgId")
	if !ok {
		return
	}
	memberID, ok := httputil.UUIDParam(w, r, "memberId")
	if !ok {
		return
	}

	err := h.service.RemoveMember(context.WithoutCancel(r.Context()), orgID, httputil.GetUserID(r.Context()), memberID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.NoContent(w)
}
