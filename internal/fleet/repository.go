package fleet

import (
	"context"

	"github.com/fleetops/fleet-incidents/internal/domain"
)

// Repository defines read access to fleet reference data.
type Repository interface {
	ListCars(ctx context.Context) ([]domain.Car, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}
