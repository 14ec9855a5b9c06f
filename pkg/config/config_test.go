package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, 100, cfg.Ingest.RateLimitPerSecond)
	require.Equal(t, 20, cfg.Ingest.RateLimitBurst)
	require.True(t, cfg.Ingest.DefaultBidAmount.Equal(decimal.RequireFromString("0.50")))
	require.Equal(t, "USD", cfg.Ingest.DefaultCurrency)
	require.Equal(t, 9, cfg.Billing.PeakStartHour)
	require.Equal(t, 17, cfg.Billing.PeakEndHour)
	require.True(t, cfg.Billing.PeakMultiplier.Equal(decimal.RequireFromString("1.2")))
	require.True(t, cfg.Billing.OffPeakMultiplier.Equal(decimal.RequireFromString("0.8")))
	require.Empty(t, cfg.Billing.InitialBudgets)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PEAK_START_HOUR", "8")
	t.Setenv("DEFAULT_BID_AMOUNT", "1.25")
	t.Setenv("INITIAL_BUDGETS", "adv-501=100.00,adv-502=150.00")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, 8, cfg.Billing.PeakStartHour)
	require.True(t, cfg.Ingest.DefaultBidAmount.Equal(decimal.RequireFromString("1.25")))
	require.Len(t, cfg.Billing.InitialBudgets, 2)
	require.True(t, cfg.Billing.InitialBudgets["adv-502"].Equal(decimal.RequireFromString("150.00")))
}

func TestParseBudgetsSkipsMalformedEntries(t *testing.T) {
	budgets := parseBudgets("adv-501=100.00, adv-502=abc ,=50.00,adv-503=-10,no-equals,adv-504=75.50")

	require.Len(t, budgets, 2)
	require.True(t, budgets["adv-501"].Equal(decimal.RequireFromString("100.00")))
	require.True(t, budgets["adv-504"].Equal(decimal.RequireFromString("75.50")))
}
