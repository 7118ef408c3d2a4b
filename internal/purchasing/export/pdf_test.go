package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/purchasing"
)

func TestRenderProducesPDF(t *testing.T) {
	d := purchasing.Detail{
		PurchaseOrder: purchasing.PurchaseOrder{
			ID:            uuid.New(),
			Number:        "20240501-003",
			Purpose:       "Office laptops",
			DateRequested: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			DeliveryDate:  time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
			ShippingFee:   decimal.RequireFromString("6000.00"),
			Discount:      decimal.RequireFromString("13543.00"),
			Subtotal:      decimal.RequireFromString("264860.00"),
			Total:         decimal.RequireFromString("296643.20"),
		},
		SupplierName:   "Acme Supplies",
		RequestorEmail: "requestor@procureflow.local",
		Status:         purchasing.StatusDraft,
		Items: []purchasing.Item{
			{Description: "Laptop", Quantity: 10, UnitPrice: decimal.RequireFromString("20996.00"), TotalCost: decimal.RequireFromString("209960.00")},
			{Description: "Monitor", Quantity: 10, UnitPrice: decimal.RequireFromString("5490.00"), TotalCost: decimal.RequireFromString("54900.00")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPDFRenderer("ProcureFlow", "PHP").Render(&buf, d))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
