package purchasing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MaxQuantity and MaxAmount are the largest values the items and
// purchase_orders columns (INTEGER, NUMERIC(14,2)) can hold.
const MaxQuantity = math.MaxInt32

var MaxAmount = decimal.RequireFromString("999999999999.99")

// Policy holds the money constants applied to every order.
type Policy struct {
	VATRate     decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
}

// DefaultPolicy returns 12% VAT, 6000.00 shipping and 13543.00 discount.
func DefaultPolicy() Policy {
	return Policy{
		VATRate:     decimal.RequireFromString("0.12"),
		ShippingFee: decimal.RequireFromString("6000.00"),
		Discount:    decimal.RequireFromString("13543.00"),
	}
}

// Line is a priced line item ready for totals.
type Line struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Source      PriceSource
}

// TotalCost is quantity times unit price.
func (l Line) TotalCost() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals are the order level amounts.
type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	VAT         decimal.Decimal
	Total       decimal.Decimal
}

// Compute derives order totals. Shipping and discount apply only when the
// subtotal is positive and are recorded without being folded into Total:
// Total is Subtotal plus VAT.
func (p Policy) Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.TotalCost())
	}
	t := Totals{
		Subtotal:    subtotal,
		ShippingFee: decimal.Zero,
		Discount:    decimal.Zero,
	}
	if subtotal.IsPositive() {
		t.ShippingFee = p.ShippingFee
		t.Discount = p.Discount
	}
	t.VAT = subtotal.Mul(p.VATRate).Round(2)
	t.Total = subtotal.Add(t.VAT)
	return t
}

// normalizePrice fixes a unit price to cents.
func normalizePrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// checkAmounts rejects priced lines whose line total, or whose order
// totals, do not fit the stored precision. Historical prices are only known
// after lookup, so this runs after pricing rather than in Validate.
func checkAmounts(lines []Line, t Totals) error {
	fields := map[string]string{}
	for i, l := range lines {
		if l.TotalCost().GreaterThan(MaxAmount) {
			fields[fmt.Sprintf("items.%d.quantity", i)] = fmt.Sprintf(
				"The item %d total cost may not be greater than %s.", i+1, MaxAmount.StringFixed(2))
		}
	}
	for _, amount := range []decimal.Decimal{t.Subtotal, t.VAT, t.Total} {
		if amount.GreaterThan(MaxAmount) {
			fields["items"] = fmt.Sprintf("The order total may not be greater than %s.", MaxAmount.StringFixed(2))
			break
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return newValidationError(ErrValidation, fields)
}
