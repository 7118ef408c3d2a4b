package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "csrf")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.False(t, cfg.IsProduction())

	policy, err := cfg.PricingPolicy()
	require.NoError(t, err)
	require.Equal(t, "0.12", policy.VATRate.String())
	require.Equal(t, "6000.00", policy.ShippingFee.StringFixed(2))
	require.Equal(t, "13543.00", policy.Discount.StringFixed(2))
}

func TestLoadConfigRejectsBadMoneySettings(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("PO_VAT_RATE", "twelve percent")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "PO_VAT_RATE")
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus_Mons")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}
