// Package incidents provides the incident lifecycle engine: validated
// partial updates, audit-trail derivation, filtered listing and aggregate
// statistics.
package incidents

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/fleetops/fleet-incidents/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the incidents module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/incidents", h.ListIncidents)
	r.Post("/incidents", h.CreateIncident)
	r.Get("/incidents/stats", h.GetStats)
	r.Get("/incidents/{id}", h.GetIncident)
	r.Put("/incidents/{id}", h.UpdateIncident)
	r.Post("/incidents/{id}/updates", h.AddNote)
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	CarID        int64     `json:"carId" validate:"required"`
	ReportedByID int64     `json:"reportedById" validate:"required"`
	AssignedToID *int64    `json:"assignedToId"`
	Title        string    `json:"title" validate:"required,min=3"`
	Description  string    `json:"description" validate:"required,min=3"`
	Severity     string    `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Status       string    `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS RESOLVED CLOSED CANCELLED"`
	Type         string    `json:"type" validate:"required,oneof=ACCIDENT BREAKDOWN THEFT VANDALISM MAINTENANCE_ISSUE TRAFFIC_VIOLATION FUEL_ISSUE OTHER"`
	Location     *string   `json:"location"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	OccurredAt   time.Time `json:"occurredAt" validate:"required"`
	CarReadingID *int64    `json:"carReadingId"`
	Images       []string  `json:"images"`
	Documents    []string  `json:"documents"`
}

// ToInput converts the request to a service input.
func (r *CreateIncidentRequest) ToInput() CreateInput {
	return CreateInput{
		CarID:        r.CarID,
		ReportedByID: r.ReportedByID,
		AssignedToID: r.AssignedToID,
		Title:        r.Title,
		Description:  r.Description,
		Severity:     domain.Severity(r.Severity),
		Status:       domain.IncidentStatus(r.Status),
		Type:         domain.IncidentType(r.Type),
		Location:     r.Location,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		OccurredAt:   r.OccurredAt,
		CarReadingID: r.CarReadingID,
		Images:       r.Images,
		Documents:    r.Documents,
	}
}

// UpdateIncidentRequest represents the partial update body. Every field is
// tri-state: absent keeps the stored value, null clears it, a value sets it.
// userId names the acting user for the audit entry.
type UpdateIncidentRequest struct {
	UserID          Optional[int64]                 `json:"userId"`
	Title           Optional[string]                `json:"title"`
	Description     Optional[string]                `json:"description"`
	Severity        Optional[domain.Severity]       `json:"severity"`
	Status          Optional[domain.IncidentStatus] `json:"status"`
	Type            Optional[domain.IncidentType]   `json:"type"`
	Location        Optional[string]                `json:"location"`
	Latitude        Optional[float64]               `json:"latitude"`
	Longitude       Optional[float64]               `json:"longitude"`
	OccurredAt      Optional[time.Time]             `json:"occurredAt"`
	CarReadingID    Optional[int64]                 `json:"carReadingId"`
	Images          Optional[[]string]              `json:"images"`
	Documents       Optional[[]string]              `json:"documents"`
	ResolutionNotes Optional[string]                `json:"resolutionNotes"`
	EstimatedCost   Optional[float64]               `json:"estimatedCost"`
	ActualCost      Optional[float64]               `json:"actualCost"`
	AssignedToID    Optional[int64]                 `json:"assignedToId"`
}

// ToInput converts the request to a service input.
func (r *UpdateIncidentRequest) ToInput() UpdateInput {
	return UpdateInput{
		Title:           r.Title,
		Description:     r.Description,
		Severity:        r.Severity,
		Status:          r.Status,
		Type:            r.Type,
		Location:        r.Location,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		OccurredAt:      r.OccurredAt,
		CarReadingID:    r.CarReadingID,
		Images:          r.Images,
		Documents:       r.Documents,
		ResolutionNotes: r.ResolutionNotes,
		EstimatedCost:   r.EstimatedCost,
		ActualCost:      r.ActualCost,
		AssignedToID:    r.AssignedToID,
	}
}

// AddNoteRequest represents the request body for a direct audit entry.
type AddNoteRequest struct {
	UserID     *int64 `json:"userId"`
	Message    string `json:"message" validate:"required,min=1"`
	UpdateType string `json:"updateType" validate:"required,oneof=STATUS_CHANGE ASSIGNMENT COMMENT COST_UPDATE RESOLUTION"`
}

var serviceErrorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrCarNotFound, Status: http.StatusNotFound},
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidInput, Status: http.StatusBadRequest},
}

// CreateIncident handles POST /incidents.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := decodeStrict(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	incident, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// UpdateIncident handles PUT /incidents/{id}.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateIncidentRequest
	if err := decodeStrict(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	incident, err := h.service.ApplyUpdate(r.Context(), id, req.ToInput(), req.UserID.Ptr())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// AddNote handles POST /incidents/{id}/updates.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AddNoteRequest
	if err := decodeStrict(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	entry, err := h.service.AddNote(r.Context(), id, NoteInput{
		UserID:     req.UserID,
		Message:    req.Message,
		UpdateType: domain.UpdateType(req.UpdateType),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusCreated, entry)
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filters, page, limit, err := parseListQuery(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ListIncidents(r.Context(), filters, page, limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// GetStats handles GET /incidents/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ComputeStats(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}

func decodeStrict(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid incident id %q", raw)
	}
	return id, nil
}

// parseListQuery parses filter and pagination query parameters. Malformed
// values are rejected rather than silently coerced.
func parseListQuery(r *http.Request) (Filters, int, int, error) {
	q := r.URL.Query()
	var f Filters

	if v := q.Get("status"); v != "" {
		status := domain.IncidentStatus(v)
		if !status.IsValid() {
			return f, 0, 0, fmt.Errorf("invalid status %q", v)
		}
		f.Status = &status
	}
	if v := q.Get("severity"); v != "" {
		severity := domain.Severity(v)
		if !severity.IsValid() {
			return f, 0, 0, fmt.Errorf("invalid severity %q", v)
		}
		f.Severity = &severity
	}
	if v := q.Get("carId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, 0, 0, fmt.Errorf("invalid carId %q", v)
		}
		f.CarID = &id
	}
	if v := q.Get("assignedToId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, 0, 0, fmt.Errorf("invalid assignedToId %q", v)
		}
		f.AssignedToID = &id
	}
	if v := q.Get("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, 0, 0, fmt.Errorf("invalid startDate %q", v)
		}
		f.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, 0, 0, fmt.Errorf("invalid endDate %q", v)
		}
		f.EndDate = &t
	}
	f.Query = q.Get("query")

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, 0, 0, fmt.Errorf("invalid page %q", v)
		}
		page = n
	}

	limit := DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, 0, 0, fmt.Errorf("invalid limit %q", v)
		}
		limit = n
	}

	return f, page, limit, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
