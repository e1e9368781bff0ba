package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Severity classifies how urgent an incident is.
type Severity string

// Severity levels.
const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	StatusPending    IncidentStatus = "PENDING"
	StatusInProgress IncidentStatus = "IN_PROGRESS"
	StatusResolved   IncidentStatus = "RESOLVED"
	StatusClosed     IncidentStatus = "CLOSED"
	StatusCancelled  IncidentStatus = "CANCELLED"
)

// IncidentType categorizes what happened.
type IncidentType string

// Incident types.
const (
	TypeAccident         IncidentType = "ACCIDENT"
	TypeBreakdown        IncidentType = "BREAKDOWN"
	TypeTheft            IncidentType = "THEFT"
	TypeVandalism        IncidentType = "VANDALISM"
	TypeMaintenanceIssue IncidentType = "MAINTENANCE_ISSUE"
	TypeTrafficViolation IncidentType = "TRAFFIC_VIOLATION"
	TypeFuelIssue        IncidentType = "FUEL_ISSUE"
	TypeOther            IncidentType = "OTHER"
)

// UpdateType classifies an audit-trail entry.
type UpdateType string

// Update types.
const (
	UpdateTypeStatusChange UpdateType = "STATUS_CHANGE"
	UpdateTypeAssignment   UpdateType = "ASSIGNMENT"
	UpdateTypeComment      UpdateType = "COMMENT"
	UpdateTypeCostUpdate   UpdateType = "COST_UPDATE"
	UpdateTypeResolution   UpdateType = "RESOLUTION"
)

// IsValid checks if the severity is one of the known levels.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IsValid checks if the status is one of the known lifecycle states.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// IsValid checks if the incident type is one of the known categories.
func (t IncidentType) IsValid() bool {
	switch t {
	case TypeAccident, TypeBreakdown, TypeTheft, TypeVandalism,
		TypeMaintenanceIssue, TypeTrafficViolation, TypeFuelIssue, TypeOther:
		return true
	}
	return false
}

// IsValid checks if the update type is one of the known kinds.
func (t UpdateType) IsValid() bool {
	switch t {
	case UpdateTypeStatusChange, UpdateTypeAssignment, UpdateTypeComment,
		UpdateTypeCostUpdate, UpdateTypeResolution:
		return true
	}
	return false
}

var enumTitler = cases.Title(language.English)

// Label renders an enum constant as a display label, e.g.
// MAINTENANCE_ISSUE becomes "Maintenance Issue".
func Label[T ~string](v T) string {
	return enumTitler.String(strings.ToLower(strings.ReplaceAll(string(v), "_", " ")))
}

// Incident is one reported fleet event.
type Incident struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Severity        Severity       `json:"severity"`
	Status          IncidentStatus `json:"status"`
	Type            IncidentType   `json:"type"`
	OccurredAt      time.Time      `json:"occurredAt"`
	ReportedAt      time.Time      `json:"reportedAt"`
	ResolvedAt      *time.Time     `json:"resolvedAt"`
	ResolutionNotes *string        `json:"resolutionNotes"`
	EstimatedCost   *float64       `json:"estimatedCost"`
	ActualCost      *float64       `json:"actualCost"`
	Location        *string        `json:"location"`
	Latitude        *float64       `json:"latitude"`
	Longitude       *float64       `json:"longitude"`
	CarID           int64          `json:"carId"`
	ReportedByID    int64          `json:"reportedById"`
	AssignedToID    *int64         `json:"assignedToId"`
	CarReadingID    *int64         `json:"carReadingId"`
	Images          []string       `json:"images"`
	Documents       []string       `json:"documents"`

	// Populated on reads, not persisted with the incident row.
	Car        *Car             `json:"car,omitempty"`
	ReportedBy *User            `json:"reportedBy,omitempty"`
	AssignedTo *User            `json:"assignedTo,omitempty"`
	Updates    []IncidentUpdate `json:"updates,omitempty"`
}

// IncidentUpdate is one immutable audit-trail entry owned by an incident.
// UserID 0 means the entry was written by the system.
type IncidentUpdate struct {
	ID         int64      `json:"id"`
	IncidentID int64      `json:"incidentId"`
	UserID     int64      `json:"userId"`
	Message    string     `json:"message"`
	UpdateType UpdateType `json:"updateType"`
	CreatedAt  time.Time  `json:"createdAt"`

	User *User `json:"user,omitempty"`
}
