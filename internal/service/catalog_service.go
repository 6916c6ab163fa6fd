package service

import (
	"context"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

// CatalogService exposes read-only status and role reference data.
type CatalogService struct {
	catalog repository.CatalogRepository
}

// NewCatalogService constructs the service.
func NewCatalogService(catalog repository.CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// ListStatuses returns every status ordered by id.
func (s *CatalogService) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	statuses, err := s.catalog.ListStatuses(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	return statuses, nil
}

// ListRoles returns every role ordered by id.
func (s *CatalogService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.catalog.ListRoles(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	return roles, nil
}
