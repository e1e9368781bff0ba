// Package postgres provides the PostgreSQL implementation of the incidents
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/fleetops/fleet-incidents/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const incidentColumns = `
	id, title, description, severity, status, type,
	occurred_at, reported_at, resolved_at, resolution_notes,
	estimated_cost, actual_cost, location, latitude, longitude,
	car_id, reported_by_id, assigned_to_id, car_reading_id,
	images, documents
`

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	err := row.Scan(
		&inc.ID,
		&inc.Title,
		&inc.Description,
		&inc.Severity,
		&inc.Status,
		&inc.Type,
		&inc.OccurredAt,
		&inc.ReportedAt,
		&inc.ResolvedAt,
		&inc.ResolutionNotes,
		&inc.EstimatedCost,
		&inc.ActualCost,
		&inc.Location,
		&inc.Latitude,
		&inc.Longitude,
		&inc.CarID,
		&inc.ReportedByID,
		&inc.AssignedToID,
		&inc.CarReadingID,
		&inc.Images,
		&inc.Documents,
	)
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

// GetIncident retrieves the incident row by ID, without related entities.
func (r *Repository) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	inc, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// GetIncidentDetail retrieves an incident with its car, reporter, assignee
// and update history ordered most recent first.
func (r *Repository) GetIncidentDetail(ctx context.Context, id int64) (*domain.Incident, error) {
	inc, err := r.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.attachRelations(ctx, inc); err != nil {
		return nil, err
	}

	updates, err := r.listUpdates(ctx, id)
	if err != nil {
		return nil, err
	}
	inc.Updates = updates

	return inc, nil
}

func (r *Repository) attachRelations(ctx context.Context, inc *domain.Incident) error {
	car, err := r.getCar(ctx, inc.CarID)
	if err != nil {
		return err
	}
	inc.Car = car

	reporter, err := r.getUser(ctx, inc.ReportedByID)
	if err != nil {
		return err
	}
	inc.ReportedBy = reporter

	if inc.AssignedToID != nil {
		assignee, err := r.getUser(ctx, *inc.AssignedToID)
		if err != nil {
			return err
		}
		inc.AssignedTo = assignee
	}

	return nil
}

func (r *Repository) getCar(ctx context.Context, id int64) (*domain.Car, error) {
	var car domain.Car
	err := r.db.QueryRow(ctx, `SELECT id, vin, label FROM cars WHERE id = $1`, id).
		Scan(&car.ID, &car.VIN, &car.Label)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrCarNotFound
		}
		return nil, fmt.Errorf("get car: %w", err)
	}
	return &car, nil
}

func (r *Repository) getUser(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// listUpdates returns the incident's audit entries, most recent first, each
// with its author when the author is a known user.
func (r *Repository) listUpdates(ctx context.Context, incidentID int64) ([]domain.IncidentUpdate, error) {
	query := `
		SELECT
			iu.id, iu.incident_id, iu.user_id, iu.message, iu.update_type, iu.created_at,
			u.id, u.name, u.email
		FROM incident_updates iu
		LEFT JOIN users u ON u.id = iu.user_id
		WHERE iu.incident_id = $1
		ORDER BY iu.created_at DESC, iu.id DESC
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	defer rows.Close()

	updates := make([]domain.IncidentUpdate, 0)
	for rows.Next() {
		var upd domain.IncidentUpdate
		var userID *int64
		var userName, userEmail *string
		err := rows.Scan(
			&upd.ID,
			&upd.IncidentID,
			&upd.UserID,
			&upd.Message,
			&upd.UpdateType,
			&upd.CreatedAt,
			&userID,
			&userName,
			&userEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		if userID != nil {
			upd.User = &domain.User{ID: *userID, Name: *userName, Email: *userEmail}
		}
		updates = append(updates, upd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate updates: %w", err)
	}

	return updates, nil
}

// buildFilterClause renders the WHERE conditions for the given filters.
// Returns the SQL suffix (starting with " AND" terms) and its arguments.
func buildFilterClause(f incidents.Filters, argNum int) (string, []interface{}) {
	clause := ""
	args := []interface{}{}

	if f.Status != nil {
		clause += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *f.Status)
		argNum++
	}
	if f.Severity != nil {
		clause += fmt.Sprintf(" AND severity = $%d", argNum)
		args = append(args, *f.Severity)
		argNum++
	}
	if f.CarID != nil {
		clause += fmt.Sprintf(" AND car_id = $%d", argNum)
		args = append(args, *f.CarID)
		argNum++
	}
	if f.AssignedToID != nil {
		clause += fmt.Sprintf(" AND assigned_to_id = $%d", argNum)
		args = append(args, *f.AssignedToID)
		argNum++
	}
	if f.StartDate != nil {
		clause += fmt.Sprintf(" AND occurred_at >= $%d", argNum)
		args = append(args, *f.StartDate)
		argNum++
	}
	if f.EndDate != nil {
		clause += fmt.Sprintf(" AND occurred_at <= $%d", argNum)
		args = append(args, *f.EndDate)
		argNum++
	}
	if f.Query != "" {
		clause += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d OR location ILIKE $%d)",
			argNum, argNum, argNum)
		args = append(args, "%"+f.Query+"%")
	}

	return clause, args
}

// ListIncidents retrieves one page of incidents matching the filters,
// ordered by occurred_at descending with id descending as tie-break.
func (r *Repository) ListIncidents(ctx context.Context, f incidents.Filters, limit, offset int) ([]*domain.Incident, error) {
	clause, args := buildFilterClause(f, 1)
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1` + clause
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	list := make([]*domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		list = append(list, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	for _, inc := range list {
		if err := r.attachRelations(ctx, inc); err != nil {
			return nil, err
		}
	}

	return list, nil
}

// CountIncidents returns the total number of rows matching the filters.
func (r *Repository) CountIncidents(ctx context.Context, f incidents.Filters) (int, error) {
	clause, args := buildFilterClause(f, 1)
	query := `SELECT COUNT(*) FROM incidents WHERE 1=1` + clause

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return count, nil
}

// CreateUpdate creates an audit entry outside any transaction.
func (r *Repository) CreateUpdate(ctx context.Context, update *domain.IncidentUpdate) error {
	return r.createUpdate(ctx, r.db, update)
}

// CreateUpdateTx creates an audit entry within a transaction.
func (r *Repository) CreateUpdateTx(ctx context.Context, tx pgx.Tx, update *domain.IncidentUpdate) error {
	return r.createUpdate(ctx, tx, update)
}

func (r *Repository) createUpdate(ctx context.Context, q querier, update *domain.IncidentUpdate) error {
	query := `
		INSERT INTO incident_updates (incident_id, user_id, message, update_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := q.QueryRow(ctx, query,
		update.IncidentID,
		update.UserID,
		update.Message,
		update.UpdateType,
	).Scan(&update.ID, &update.CreatedAt)
	if err != nil {
		return fmt.Errorf("create incident update: %w", err)
	}
	return nil
}

// CountByStatus returns incident counts grouped by status.
func (r *Repository) CountByStatus(ctx context.Context) (map[domain.IncidentStatus]int, error) {
	return groupCount[domain.IncidentStatus](ctx, r.db, "status")
}

// CountBySeverity returns incident counts grouped by severity.
func (r *Repository) CountBySeverity(ctx context.Context) (map[domain.Severity]int, error) {
	return groupCount[domain.Severity](ctx, r.db, "severity")
}

// CountByType returns incident counts grouped by type.
func (r *Repository) CountByType(ctx context.Context) (map[domain.IncidentType]int, error) {
	return groupCount[domain.IncidentType](ctx, r.db, "type")
}

func groupCount[K ~string](ctx context.Context, db *pgxpool.Pool, column string) (map[K]int, error) {
	// column is one of the fixed grouping columns, never user input.
	rows, err := db.Query(ctx, fmt.Sprintf(`SELECT %s, COUNT(*) FROM incidents GROUP BY %s`, column, column))
	if err != nil {
		return nil, fmt.Errorf("group by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[K]int)
	for rows.Next() {
		var key K
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	return counts, nil
}

// ResolutionTimes returns (reported_at, resolved_at) pairs for all resolved
// incidents.
func (r *Repository) ResolutionTimes(ctx context.Context) ([]incidents.ResolutionSample, error) {
	rows, err := r.db.Query(ctx, `SELECT reported_at, resolved_at FROM incidents WHERE resolved_at IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("resolution times: %w", err)
	}
	defer rows.Close()

	samples := make([]incidents.ResolutionSample, 0)
	for rows.Next() {
		var s incidents.ResolutionSample
		if err := rows.Scan(&s.ReportedAt, &s.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan resolution sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution samples: %w", err)
	}

	return samples, nil
}

// CarExists reports whether a car row exists.
func (r *Repository) CarExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM cars WHERE id = $1)`, id)
}

// UserExists reports whether a user row exists.
func (r *Repository) UserExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
}

func (r *Repository) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return ok, nil
}

// BeginTx starts a transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// CreateIncidentTx inserts a new incident within a transaction.
func (r *Repository) CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (
			title, description, severity, status, type,
			occurred_at, resolution_notes, estimated_cost, actual_cost,
			location, latitude, longitude,
			car_id, reported_by_id, assigned_to_id, car_reading_id,
			images, documents
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, reported_at
	`
	err := tx.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Severity,
		incident.Status,
		incident.Type,
		incident.OccurredAt,
		incident.ResolutionNotes,
		incident.EstimatedCost,
		incident.ActualCost,
		incident.Location,
		incident.Latitude,
		incident.Longitude,
		incident.CarID,
		incident.ReportedByID,
		incident.AssignedToID,
		incident.CarReadingID,
		incident.Images,
		incident.Documents,
	).Scan(&incident.ID, &incident.ReportedAt)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// UpdateIncidentTx writes all mutable incident columns within a transaction.
func (r *Repository) UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET title = $2, description = $3, severity = $4, status = $5, type = $6,
		    occurred_at = $7, resolution_notes = $8, estimated_cost = $9,
		    actual_cost = $10, location = $11, latitude = $12, longitude = $13,
		    assigned_to_id = $14, car_reading_id = $15, images = $16, documents = $17
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query,
		incident.ID,
		incident.Title,
		incident.Description,
		incident.Severity,
		incident.Status,
		incident.Type,
		incident.OccurredAt,
		incident.ResolutionNotes,
		incident.EstimatedCost,
		incident.ActualCost,
		incident.Location,
		incident.Latitude,
		incident.Longitude,
		incident.AssignedToID,
		incident.CarReadingID,
		incident.Images,
		incident.Documents,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}
