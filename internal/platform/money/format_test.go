package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"264860":     "264,860.00",
		"31783.2":    "31,783.20",
		"0":          "0.00",
		"999.999":    "1,000.00",
		"-13543":     "-13,543.00",
		"1234567.05": "1,234,567.05",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(decimal.RequireFromString(in)), in)
	}
}

func TestFormatWithCurrency(t *testing.T) {
	assert.Equal(t, "PHP 6,000.00", FormatWithCurrency("PHP", decimal.NewFromInt(6000)))
	assert.Equal(t, "6,000.00", FormatWithCurrency("", decimal.NewFromInt(6000)))
}
