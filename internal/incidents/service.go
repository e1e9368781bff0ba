package incidents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/fleetops/fleet-incidents/internal/pkg/metrics"
	"github.com/jackc/pgx/v5"
)

// Pagination bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Service implements the incident lifecycle: validated mutation plus audit
// synthesis as one unit of work.
type Service struct {
	repo Repository
}

// NewService creates a new incident service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateIncident validates and persists a new incident together with its
// initial "Incident created" audit entry, atomically.
func (s *Service) CreateIncident(ctx context.Context, input CreateInput) (*domain.Incident, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	if err := s.checkReferences(ctx, input.CarID, input.ReportedByID, input.AssignedToID); err != nil {
		return nil, err
	}

	incident := &domain.Incident{
		Title:           input.Title,
		Description:     input.Description,
		Severity:        input.Severity,
		Status:          input.Status,
		Type:            input.Type,
		OccurredAt:      input.OccurredAt,
		ResolutionNotes: nil,
		Location:        input.Location,
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		CarID:           input.CarID,
		ReportedByID:    input.ReportedByID,
		AssignedToID:    input.AssignedToID,
		CarReadingID:    input.CarReadingID,
		Images:          input.Images,
		Documents:       input.Documents,
	}
	if incident.Severity == "" {
		incident.Severity = domain.SeverityLow
	}
	if incident.Status == "" {
		incident.Status = domain.StatusPending
	}
	if incident.Images == nil {
		incident.Images = []string{}
	}
	if incident.Documents == nil {
		incident.Documents = []string{}
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.CreateIncidentTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	entry := &domain.IncidentUpdate{
		IncidentID: incident.ID,
		UserID:     input.ReportedByID,
		Message:    "Incident created",
		UpdateType: domain.UpdateTypeComment,
	}
	if err := s.repo.CreateUpdateTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	metrics.IncidentsCreated.WithLabelValues(string(incident.Type), string(incident.Severity)).Inc()
	metrics.AuditEntriesWritten.WithLabelValues(string(entry.UpdateType)).Inc()

	return incident, nil
}

// ApplyUpdate merges a validated partial update onto the stored incident and
// records exactly one derived audit entry, both in one transaction. Change
// detection runs against (stored state, caller input), not the merged result,
// so the log reflects caller intent. The audit author is actingUserID when
// supplied, else the incident's original reporter.
func (s *Service) ApplyUpdate(ctx context.Context, id int64, input UpdateInput, actingUserID *int64) (*domain.Incident, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	before, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.AssignedToID.Set && input.AssignedToID.Valid {
		ok, err := s.repo.UserExists(ctx, input.AssignedToID.Value)
		if err != nil {
			return nil, fmt.Errorf("check assignee: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: assignedToId %d", ErrUserNotFound, input.AssignedToID.Value)
		}
	}

	merged := input.apply(before)
	changes := detectChanges(before, input)

	authorID := before.ReportedByID
	if actingUserID != nil {
		authorID = *actingUserID
	}
	entry := synthesizeUpdate(id, changes, authorID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.UpdateIncidentTx(ctx, tx, merged); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	if err := s.repo.CreateUpdateTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	metrics.AuditEntriesWritten.WithLabelValues(string(entry.UpdateType)).Inc()

	return s.repo.GetIncidentDetail(ctx, id)
}

// AddNote appends a direct audit entry without change detection.
// A nil UserID records the entry as written by the system (user 0).
func (s *Service) AddNote(ctx context.Context, incidentID int64, input NoteInput) (*domain.IncidentUpdate, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	var authorID int64
	if input.UserID != nil {
		authorID = *input.UserID
	}

	entry := &domain.IncidentUpdate{
		IncidentID: incidentID,
		UserID:     authorID,
		Message:    input.Message,
		UpdateType: input.UpdateType,
	}
	if err := s.repo.CreateUpdate(ctx, entry); err != nil {
		return nil, fmt.Errorf("create audit entry: %w", err)
	}

	metrics.AuditEntriesWritten.WithLabelValues(string(entry.UpdateType)).Inc()

	return entry, nil
}

// GetIncident retrieves an incident with its car, reporter, assignee and
// update history (most recent first).
func (s *Service) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	return s.repo.GetIncidentDetail(ctx, id)
}

// Page is one page of matching incidents plus the total count of all
// matching rows. The page and total reads share a filter predicate but are
// not transactionally consistent with each other.
type Page struct {
	Items []*domain.Incident `json:"items"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// ListIncidents returns one page of matching incidents. Limit is clamped to
// [1, MaxLimit], page to >= 1.
func (s *Service) ListIncidents(ctx context.Context, filters Filters, page, limit int) (*Page, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	items, err := s.repo.ListIncidents(ctx, filters, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	total, err := s.repo.CountIncidents(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count incidents: %w", err)
	}

	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// checkReferences verifies the car, reporter and optional assignee exist.
func (s *Service) checkReferences(ctx context.Context, carID, reporterID int64, assigneeID *int64) error {
	ok, err := s.repo.CarExists(ctx, carID)
	if err != nil {
		return fmt.Errorf("check car: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: carId %d", ErrCarNotFound, carID)
	}

	ok, err = s.repo.UserExists(ctx, reporterID)
	if err != nil {
		return fmt.Errorf("check reporter: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: reportedById %d", ErrUserNotFound, reporterID)
	}

	if assigneeID != nil {
		ok, err = s.repo.UserExists(ctx, *assigneeID)
		if err != nil {
			return fmt.Errorf("check assignee: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: assignedToId %d", ErrUserNotFound, *assigneeID)
		}
	}

	return nil
}

// Stats holds aggregate incident metrics.
type Stats struct {
	ByStatus           []StatusCount   `json:"byStatus"`
	BySeverity         []SeverityCount `json:"bySeverity"`
	ByType             []TypeCount     `json:"byType"`
	ResolutionHoursAvg float64         `json:"resolutionHoursAvg"`
}

// StatusCount is one grouped status row.
type StatusCount struct {
	Status domain.IncidentStatus `json:"status"`
	Count  int                   `json:"count"`
}

// SeverityCount is one grouped severity row.
type SeverityCount struct {
	Severity domain.Severity `json:"severity"`
	Count    int             `json:"count"`
}

// TypeCount is one grouped type row, with a display label for clients.
type TypeCount struct {
	Type  domain.IncidentType `json:"type"`
	Count int                 `json:"count"`
	Label string              `json:"label"`
}

var (
	allStatuses = []domain.IncidentStatus{
		domain.StatusPending, domain.StatusInProgress, domain.StatusResolved,
		domain.StatusClosed, domain.StatusCancelled,
	}
	allSeverities = []domain.Severity{
		domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical,
	}
	allTypes = []domain.IncidentType{
		domain.TypeAccident, domain.TypeBreakdown, domain.TypeTheft, domain.TypeVandalism,
		domain.TypeMaintenanceIssue, domain.TypeTrafficViolation, domain.TypeFuelIssue, domain.TypeOther,
	}
)

// ComputeStats scans the full incident set. Acceptable at fleet-management
// scale; this is not a high-volume event system.
func (s *Service) ComputeStats(ctx context.Context) (*Stats, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	bySeverity, err := s.repo.CountBySeverity(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by severity: %w", err)
	}
	byType, err := s.repo.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}

	stats := &Stats{
		ByStatus:   make([]StatusCount, 0, len(byStatus)),
		BySeverity: make([]SeverityCount, 0, len(bySeverity)),
		ByType:     make([]TypeCount, 0, len(byType)),
	}

	// Emit in canonical enum order for deterministic output; only groups
	// with at least one incident appear.
	for _, st := range allStatuses {
		if n, ok := byStatus[st]; ok {
			stats.ByStatus = append(stats.ByStatus, StatusCount{Status: st, Count: n})
		}
	}
	for _, sev := range allSeverities {
		if n, ok := bySeverity[sev]; ok {
			stats.BySeverity = append(stats.BySeverity, SeverityCount{Severity: sev, Count: n})
		}
	}
	for _, t := range allTypes {
		if n, ok := byType[t]; ok {
			stats.ByType = append(stats.ByType, TypeCount{Type: t, Count: n, Label: domain.Label(t)})
		}
	}

	samples, err := s.repo.ResolutionTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolution times: %w", err)
	}
	stats.ResolutionHoursAvg = averageResolutionHours(samples)

	return stats, nil
}

// averageResolutionHours returns the arithmetic mean of (resolvedAt -
// reportedAt) in hours, rounded to 2 decimal places. Zero for an empty set.
func averageResolutionHours(samples []ResolutionSample) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range samples {
		sum += sample.ResolvedAt.Sub(sample.ReportedAt).Hours()
	}
	avg := sum / float64(len(samples))
	return math.Round(avg*100) / 100
}
