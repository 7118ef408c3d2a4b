package suppliers

import (
	"context"

	"github.com/google/uuid"

	"github.com/procureflow/procureflow/internal/purchasing"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Supplier, error) {
	if id == uuid.Nil {
		return Supplier{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Exists implements purchasing.SupplierDirectory.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}

// Options implements purchasing.SupplierCatalog.
func (s *Service) Options(ctx context.Context) ([]purchasing.SupplierOption, error) {
	list, _, err := s.repo.List(ctx, ListFilters{SortBy: "name"})
	if err != nil {
		return nil, err
	}
	out := make([]purchasing.SupplierOption, 0, len(list))
	for _, sup := range list {
		out = append(out, purchasing.SupplierOption{ID: sup.ID, Name: sup.Name})
	}
	return out, nil
}

var (
	_ purchasing.SupplierDirectory = (*Service)(nil)
	_ purchasing.SupplierCatalog   = (*Service)(nil)
)
