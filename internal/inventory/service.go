package inventory

import (
	"context"
	"errors"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error)
	ListByLocation(ctx context.Context, locationID int64) ([]Record, error)
}

// Service serves read access to stock levels. Mutations happen only inside
// order workflow transactions via TxRepository.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetQuantity returns the on-hand quantity, 0 when no record exists.
func (s *Service) GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error) {
	if itemID == 0 || locationID == 0 {
		return 0, errors.New("inventory: item and location required")
	}
	return s.repo.GetQuantity(ctx, itemID, locationID)
}

// ListByLocation returns every record held at a location.
func (s *Service) ListByLocation(ctx context.Context, locationID int64) ([]Record, error) {
	if locationID == 0 {
		return nil, errors.New("inventory: location required")
	}
	return s.repo.ListByLocation(ctx, locationID)
}
