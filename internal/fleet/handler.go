package fleet

import (
	"net/http"

	"github.com/fleetops/fleet-incidents/internal/pkg/ctxlog"
	"github.com/fleetops/fleet-incidents/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP requests for fleet reference data.
type Handler struct {
	service *Service
}

// NewHandler creates a new fleet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the reference-list routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/incidents/cars", h.ListCars)
	r.Get("/incidents/users", h.ListUsers)
}

// ListCars handles GET /incidents/cars.
func (h *Handler) ListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.service.ListCars(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("failed to list cars", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to fetch cars")
		return
	}

	httputil.JSON(w, http.StatusOK, cars)
}

// ListUsers handles GET /incidents/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("failed to list users", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to fetch users")
		return
	}

	httputil.JSON(w, http.StatusOK, users)
}
