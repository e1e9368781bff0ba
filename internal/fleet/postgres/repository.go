// Package postgres provides the PostgreSQL implementation of the fleet
// repository.
package postgres

import (
	"context"
	"fmt"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements fleet.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListCars returns all cars ordered by id ascending.
func (r *Repository) ListCars(ctx context.Context) ([]domain.Car, error) {
	rows, err := r.db.Query(ctx, `SELECT id, vin, label FROM cars ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	cars := make([]domain.Car, 0)
	for rows.Next() {
		var car domain.Car
		if err := rows.Scan(&car.ID, &car.VIN, &car.Label); err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cars: %w", err)
	}

	return cars, nil
}

// ListUsers returns all users ordered by id ascending.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}
