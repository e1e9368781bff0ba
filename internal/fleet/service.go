// Package fleet exposes the read-only car and user reference lists that
// incident forms are populated from.
package fleet

import (
	"context"

	"github.com/fleetops/fleet-incidents/internal/domain"
)

// Service provides fleet reference data.
type Service struct {
	repo Repository
}

// NewService creates a new fleet service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListCars returns all cars ordered by id.
func (s *Service) ListCars(ctx context.Context) ([]domain.Car, error) {
	return s.repo.ListCars(ctx)
}

// ListUsers returns all users ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}
