package purchasing

import (
	"context"

	"github.com/procureflow/procureflow/internal/shared"
)

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AuditListener writes a PO_CREATE audit entry for each committed order.
type AuditListener struct {
	Audit AuditPort
}

// PurchaseOrderCreated implements CreatedListener.
func (l AuditListener) PurchaseOrderCreated(ctx context.Context, evt CreatedEvent) error {
	if l.Audit == nil {
		return nil
	}
	return l.Audit.Record(ctx, shared.AuditLog{
		ActorID:  evt.RequestorID,
		Action:   "PO_CREATE",
		Entity:   "purchase_order",
		EntityID: evt.ID.String(),
		Meta: map[string]any{
			"number":   evt.Number,
			"supplier": evt.SupplierID.String(),
			"items":    evt.ItemCount,
			"subtotal": evt.Totals.Subtotal.StringFixed(2),
			"total":    evt.Totals.Total.StringFixed(2),
		},
		At: evt.CreatedAt,
	})
}

// Invalidator drops cached read models.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// CacheListener invalidates cached metrics after each creation.
type CacheListener struct {
	Cache Invalidator
}

// PurchaseOrderCreated implements CreatedListener.
func (l CacheListener) PurchaseOrderCreated(ctx context.Context, _ CreatedEvent) error {
	if l.Cache == nil {
		return nil
	}
	return l.Cache.Bump(ctx)
}

// ListenerFunc adapts a function to CreatedListener.
type ListenerFunc func(ctx context.Context, evt CreatedEvent) error

// PurchaseOrderCreated implements CreatedListener.
func (f ListenerFunc) PurchaseOrderCreated(ctx context.Context, evt CreatedEvent) error {
	return f(ctx, evt)
}
