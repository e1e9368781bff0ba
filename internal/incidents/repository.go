package incidents

import (
	"context"
	"time"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for incident storage.
type Repository interface {
	GetIncident(ctx context.Context, id int64) (*domain.Incident, error)
	GetIncidentDetail(ctx context.Context, id int64) (*domain.Incident, error)
	ListIncidents(ctx context.Context, filters Filters, limit, offset int) ([]*domain.Incident, error)
	CountIncidents(ctx context.Context, filters Filters) (int, error)

	CreateUpdate(ctx context.Context, update *domain.IncidentUpdate) error

	CountByStatus(ctx context.Context) (map[domain.IncidentStatus]int, error)
	CountBySeverity(ctx context.Context) (map[domain.Severity]int, error)
	CountByType(ctx context.Context) (map[domain.IncidentType]int, error)
	ResolutionTimes(ctx context.Context) ([]ResolutionSample, error)

	CarExists(ctx context.Context, id int64) (bool, error)
	UserExists(ctx context.Context, id int64) (bool, error)

	// Transaction support: the entity write and its audit entry must be one
	// atomic unit as observed by concurrent readers.
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	CreateUpdateTx(ctx context.Context, tx pgx.Tx, update *domain.IncidentUpdate) error
}

// Filters holds optional list criteria, combined with logical AND.
type Filters struct {
	Status       *domain.IncidentStatus
	Severity     *domain.Severity
	CarID        *int64
	AssignedToID *int64
	StartDate    *time.Time // inclusive lower bound on occurredAt
	EndDate      *time.Time // inclusive upper bound on occurredAt
	Query        string     // case-insensitive substring over title/description/location
}

// ResolutionSample is one resolved incident's timing pair.
type ResolutionSample struct {
	ReportedAt time.Time
	ResolvedAt time.Time
}
