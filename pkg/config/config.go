package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Application settings
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Ingest  IngestConfig
	Billing BillingConfig
}

// Server settings
type ServerConfig struct {
	Port string
}

// Ingest settings for the click endpoint
type IngestConfig struct {
	RateLimitPerSecond int
	RateLimitBurst     int
	DefaultBidAmount   decimal.Decimal
	DefaultCurrency    string
}

// Billing settings
type BillingConfig struct {
	// DefaultInitialBudget is assigned to advertisers seen for the first
	// time without a provisioned budget.
	DefaultInitialBudget decimal.Decimal
	// InitialBudgets provisions budgets up front, parsed from
	// "adv-501=100.00,adv-502=150.00".
	InitialBudgets map[string]decimal.Decimal
	// Peak window is inclusive on both ends: [PeakStartHour, PeakEndHour].
	PeakStartHour     int
	PeakEndHour       int
	PeakMultiplier    decimal.Decimal
	OffPeakMultiplier decimal.Decimal
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Ingest: IngestConfig{
			RateLimitPerSecond: getIntEnv("INGEST_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getIntEnv("INGEST_RATE_LIMIT_BURST", 20),
			DefaultBidAmount:   getDecimalEnv("DEFAULT_BID_AMOUNT", "0.50"),
			DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "USD"),
		},
		Billing: BillingConfig{
			DefaultInitialBudget: getDecimalEnv("DEFAULT_INITIAL_BUDGET", "100.00"),
			InitialBudgets:       parseBudgets(getEnv("INITIAL_BUDGETS", "")),
			PeakStartHour:        getIntEnv("PEAK_START_HOUR", 9),
			PeakEndHour:          getIntEnv("PEAK_END_HOUR", 17),
			PeakMultiplier:       getDecimalEnv("PEAK_MULTIPLIER", "1.2"),
			OffPeakMultiplier:    getDecimalEnv("OFFPEAK_MULTIPLIER", "0.8"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

// parseBudgets parses "id=amount,id=amount" pairs, skipping malformed
// entries.
func parseBudgets(value string) map[string]decimal.Decimal {
	budgets := make(map[string]decimal.Decimal)
	if value == "" {
		return budgets
	}

	for _, pair := range strings.Split(value, ",") {
		id, amount, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || id == "" {
			continue
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil || parsed.IsNegative() {
			continue
		}
		budgets[id] = parsed
	}

	return budgets
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDecimalEnv(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	parsed, _ := decimal.NewFromString(defaultValue)
	return parsed
}
