package admin

import (
	"context"
	"errors"

	"github.com/procureflow/procureflow/internal/purchasing"
)

// ErrUnknownTable is returned when a table name is not among the user tables.
var ErrUnknownTable = errors.New("admin: unknown table")

// PurchaseOrderLister is the read side used for the review list.
type PurchaseOrderLister interface {
	ListAll(ctx context.Context, filter purchasing.ListFilter) ([]purchasing.Summary, int, error)
}

// Service backs the superadmin dashboard.
type Service struct {
	repo   Repository
	orders PurchaseOrderLister
}

// NewService constructs a Service.
func NewService(repo Repository, orders PurchaseOrderLister) *Service {
	return &Service{repo: repo, orders: orders}
}

// PurchaseOrders lists every purchase order with its latest status.
func (s *Service) PurchaseOrders(ctx context.Context, filter purchasing.ListFilter) ([]purchasing.Summary, int, error) {
	filter.RequestorID = 0
	return s.orders.ListAll(ctx, filter)
}

// Tables lists user tables with size estimates.
func (s *Service) Tables(ctx context.Context) ([]TableStat, error) {
	return s.repo.Tables(ctx)
}

// Columns describes a table. The name must match one returned by Tables.
func (s *Service) Columns(ctx context.Context, table string) ([]Column, error) {
	tables, err := s.repo.Tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if t.Name == table {
			return s.repo.Columns(ctx, table)
		}
	}
	return nil, ErrUnknownTable
}
