package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/procureflow/procureflow/internal/purchasing"
)

// PurchaseOrderMetrics counts purchase order creations and failures.
// It serves as both a purchasing.FailureRecorder and a CreatedListener.
type PurchaseOrderMetrics struct {
	created  prometheus.Counter
	items    prometheus.Counter
	value    prometheus.Histogram
	failures *prometheus.CounterVec
}

var (
	_ purchasing.FailureRecorder = (*PurchaseOrderMetrics)(nil)
	_ purchasing.CreatedListener = (*PurchaseOrderMetrics)(nil)
)

func newPurchaseOrderMetrics(registerer prometheus.Registerer) *PurchaseOrderMetrics {
	m := &PurchaseOrderMetrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procureflow_purchase_orders_created_total",
			Help: "Purchase orders committed.",
		}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procureflow_purchase_order_items_total",
			Help: "Line items committed with purchase orders.",
		}),
		value: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "procureflow_purchase_order_total_amount",
			Help:    "Grand total of committed purchase orders.",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 8),
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procureflow_purchase_order_failures_total",
			Help: "Failed purchase order creations by error kind.",
		}, []string{"kind"}),
	}
	registerer.MustRegister(m.created, m.items, m.value, m.failures)
	return m
}

// CreationFailed implements purchasing.FailureRecorder.
func (m *PurchaseOrderMetrics) CreationFailed(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

// PurchaseOrderCreated implements purchasing.CreatedListener.
func (m *PurchaseOrderMetrics) PurchaseOrderCreated(_ context.Context, evt purchasing.CreatedEvent) error {
	if m == nil {
		return nil
	}
	m.created.Inc()
	m.items.Add(float64(evt.ItemCount))
	m.value.Observe(evt.Totals.Total.InexactFloat64())
	return nil
}
