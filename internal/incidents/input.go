package incidents

import (
	"fmt"
	"math"
	"time"

	"github.com/fleetops/fleet-incidents/internal/domain"
)

// CreateInput holds data for creating an incident.
type CreateInput struct {
	CarID        int64
	ReportedByID int64
	AssignedToID *int64
	Title        string
	Description  string
	Severity     domain.Severity       // empty defaults to LOW
	Status       domain.IncidentStatus // empty defaults to PENDING
	Type         domain.IncidentType
	Location     *string
	Latitude     *float64
	Longitude    *float64
	OccurredAt   time.Time
	CarReadingID *int64
	Images       []string
	Documents    []string
}

// UpdateInput is a partial update. Unset fields keep their stored value;
// fields set to null clear the stored value where the column is nullable.
type UpdateInput struct {
	Title           Optional[string]
	Description     Optional[string]
	Severity        Optional[domain.Severity]
	Status          Optional[domain.IncidentStatus]
	Type            Optional[domain.IncidentType]
	Location        Optional[string]
	Latitude        Optional[float64]
	Longitude       Optional[float64]
	OccurredAt      Optional[time.Time]
	CarReadingID    Optional[int64]
	Images          Optional[[]string]
	Documents       Optional[[]string]
	ResolutionNotes Optional[string]
	EstimatedCost   Optional[float64]
	ActualCost      Optional[float64]
	AssignedToID    Optional[int64]
}

// NoteInput holds data for appending a direct audit entry.
type NoteInput struct {
	UserID     *int64 // nil means system (0)
	Message    string
	UpdateType domain.UpdateType
}

func (in CreateInput) validate() error {
	if in.CarID == 0 {
		return fmt.Errorf("%w: carId: required", ErrInvalidInput)
	}
	if in.ReportedByID == 0 {
		return fmt.Errorf("%w: reportedById: required", ErrInvalidInput)
	}
	if len(in.Title) < 3 {
		return fmt.Errorf("%w: title: must be at least 3 characters", ErrInvalidInput)
	}
	if len(in.Description) < 3 {
		return fmt.Errorf("%w: description: must be at least 3 characters", ErrInvalidInput)
	}
	if in.Severity != "" && !in.Severity.IsValid() {
		return fmt.Errorf("%w: severity: unknown value %q", ErrInvalidInput, in.Severity)
	}
	if in.Status != "" && !in.Status.IsValid() {
		return fmt.Errorf("%w: status: unknown value %q", ErrInvalidInput, in.Status)
	}
	if !in.Type.IsValid() {
		return fmt.Errorf("%w: type: unknown value %q", ErrInvalidInput, in.Type)
	}
	if in.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurredAt: required", ErrInvalidInput)
	}
	if err := checkFinite("latitude", in.Latitude); err != nil {
		return err
	}
	return checkFinite("longitude", in.Longitude)
}

func (in UpdateInput) validate() error {
	// Fields whose column is NOT NULL reject explicit null.
	for _, f := range []struct {
		name string
		set  bool
		null bool
	}{
		{"title", in.Title.Set, !in.Title.Valid},
		{"description", in.Description.Set, !in.Description.Valid},
		{"severity", in.Severity.Set, !in.Severity.Valid},
		{"status", in.Status.Set, !in.Status.Valid},
		{"type", in.Type.Set, !in.Type.Valid},
		{"occurredAt", in.OccurredAt.Set, !in.OccurredAt.Valid},
		{"images", in.Images.Set, !in.Images.Valid},
		{"documents", in.Documents.Set, !in.Documents.Valid},
	} {
		if f.set && f.null {
			return fmt.Errorf("%w: %s: must not be null", ErrInvalidInput, f.name)
		}
	}

	if in.Title.Set && len(in.Title.Value) < 3 {
		return fmt.Errorf("%w: title: must be at least 3 characters", ErrInvalidInput)
	}
	if in.Description.Set && len(in.Description.Value) < 3 {
		return fmt.Errorf("%w: description: must be at least 3 characters", ErrInvalidInput)
	}
	if in.Severity.Set && !in.Severity.Value.IsValid() {
		return fmt.Errorf("%w: severity: unknown value %q", ErrInvalidInput, in.Severity.Value)
	}
	if in.Status.Set && !in.Status.Value.IsValid() {
		return fmt.Errorf("%w: status: unknown value %q", ErrInvalidInput, in.Status.Value)
	}
	if in.Type.Set && !in.Type.Value.IsValid() {
		return fmt.Errorf("%w: type: unknown value %q", ErrInvalidInput, in.Type.Value)
	}

	for _, f := range []struct {
		name string
		v    Optional[float64]
	}{
		{"latitude", in.Latitude},
		{"longitude", in.Longitude},
		{"estimatedCost", in.EstimatedCost},
		{"actualCost", in.ActualCost},
	} {
		if f.v.Set && f.v.Valid {
			if err := checkFinite(f.name, &f.v.Value); err != nil {
				return err
			}
		}
	}

	return nil
}

func (in NoteInput) validate() error {
	if in.Message == "" {
		return fmt.Errorf("%w: message: required", ErrInvalidInput)
	}
	if !in.UpdateType.IsValid() {
		return fmt.Errorf("%w: updateType: unknown value %q", ErrInvalidInput, in.UpdateType)
	}
	return nil
}

func checkFinite(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fmt.Errorf("%w: %s: must be a finite number", ErrInvalidInput, name)
	}
	return nil
}

// apply merges the partial input onto a copy of the stored incident.
// Only present fields overwrite; null clears nullable fields.
func (in UpdateInput) apply(before *domain.Incident) *domain.Incident {
	merged := *before

	if in.Title.Set {
		merged.Title = in.Title.Value
	}
	if in.Description.Set {
		merged.Description = in.Description.Value
	}
	if in.Severity.Set {
		merged.Severity = in.Severity.Value
	}
	if in.Status.Set {
		merged.Status = in.Status.Value
	}
	if in.Type.Set {
		merged.Type = in.Type.Value
	}
	if in.OccurredAt.Set {
		merged.OccurredAt = in.OccurredAt.Value
	}
	if in.Location.Set {
		merged.Location = in.Location.Ptr()
	}
	if in.Latitude.Set {
		merged.Latitude = in.Latitude.Ptr()
	}
	if in.Longitude.Set {
		merged.Longitude = in.Longitude.Ptr()
	}
	if in.CarReadingID.Set {
		merged.CarReadingID = in.CarReadingID.Ptr()
	}
	if in.Images.Set {
		merged.Images = in.Images.Value
	}
	if in.Documents.Set {
		merged.Documents = in.Documents.Value
	}
	if in.ResolutionNotes.Set {
		merged.ResolutionNotes = in.ResolutionNotes.Ptr()
	}
	if in.EstimatedCost.Set {
		merged.EstimatedCost = in.EstimatedCost.Ptr()
	}
	if in.ActualCost.Set {
		merged.ActualCost = in.ActualCost.Ptr()
	}
	if in.AssignedToID.Set {
		merged.AssignedToID = in.AssignedToID.Ptr()
	}

	return &merged
}
