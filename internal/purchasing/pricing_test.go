package purchasing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeAppliesPolicyToPositiveSubtotal(t *testing.T) {
	lines := []Line{
		{Description: "Laptop", Quantity: 10, UnitPrice: dec("20996.00")},
		{Description: "Monitor", Quantity: 10, UnitPrice: dec("5490.00")},
	}
	totals := DefaultPolicy().Compute(lines)

	require.True(t, totals.Subtotal.Equal(dec("264860.00")), totals.Subtotal.String())
	require.True(t, totals.VAT.Equal(dec("31783.20")), totals.VAT.String())
	require.True(t, totals.Total.Equal(dec("296643.20")), totals.Total.String())
	require.True(t, totals.ShippingFee.Equal(dec("6000.00")))
	require.True(t, totals.Discount.Equal(dec("13543.00")))
}

func TestComputeZeroSubtotalSkipsFees(t *testing.T) {
	totals := DefaultPolicy().Compute([]Line{{Description: "Sample", Quantity: 3, UnitPrice: decimal.Zero}})

	require.True(t, totals.Subtotal.IsZero())
	require.True(t, totals.VAT.IsZero())
	require.True(t, totals.Total.IsZero())
	require.True(t, totals.ShippingFee.IsZero())
	require.True(t, totals.Discount.IsZero())
}

func TestComputeRoundsVATHalfUp(t *testing.T) {
	// 0.125 * 0.12 = 0.015 rounds to 0.02
	totals := DefaultPolicy().Compute([]Line{{Description: "Bolt", Quantity: 1, UnitPrice: dec("0.125")}})
	require.Equal(t, "0.02", totals.VAT.StringFixed(2))
	require.Equal(t, "0.145", totals.Total.String())
}

func TestComputeAvoidsFloatDrift(t *testing.T) {
	lines := make([]Line, 0, 10)
	for i := 0; i < 10; i++ {
		lines = append(lines, Line{Description: "Pen", Quantity: 1, UnitPrice: dec("0.10")})
	}
	totals := DefaultPolicy().Compute(lines)
	require.True(t, totals.Subtotal.Equal(dec("1.00")), totals.Subtotal.String())
	require.True(t, totals.VAT.Equal(dec("0.12")), totals.VAT.String())
}

func TestLineTotalCost(t *testing.T) {
	l := Line{Quantity: 3, UnitPrice: dec("19.99")}
	require.True(t, l.TotalCost().Equal(dec("59.97")))
}
