// Package money formats fixed-point amounts for display.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders d with two decimals and thousands separators, e.g.
// 264860 becomes "264,860.00". Grouping is applied to the integer part only
// so the value never passes through floating point. Amounts must fit in int64.
func Format(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	whole, err := decimal.NewFromString(intPart)
	if err != nil {
		return d.StringFixed(2)
	}
	var b strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(printer.Sprintf("%d", whole.IntPart()))
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatWithCurrency prefixes Format with a currency code.
func FormatWithCurrency(code string, d decimal.Decimal) string {
	if code == "" {
		return Format(d)
	}
	return code + " " + Format(d)
}
