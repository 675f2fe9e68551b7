package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/outager/outager/internal/pkg/httputil"
)

// AuthErrorMappings maps token validation failures for httputil.AuthMiddleware.
var AuthErrorMappings = []httputil.ErrorMapping{
	{Error: ErrInvalidToken, Status: http.StatusUnauthorized},
	{Error: ErrEmailInUse, Status: http.StatusConflict},
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrProfileNotFound, Status: http.StatusNotFound, Message: "profile not found"},
}

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service *Service
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, profile)
}
