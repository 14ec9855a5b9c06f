package usecase

import (
	"io"
	"testing"
	"time"

	"adpipe/internal/domain"
	"adpipe/internal/infrastructure"
	"adpipe/pkg/config"
	"adpipe/pkg/logger"
	"adpipe/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixedJitter struct{ v float64 }

func (f fixedJitter) Jitter() float64 { return f.v }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// clockAt pins the wall clock to the given hour of day.
func clockAt(hour int) fixedClock {
	return fixedClock{t: time.Date(2025, 6, 2, hour, 30, 0, 0, time.UTC)}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDecimalEqual(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	require.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func testLogger() *logger.Logger {
	log := logger.New("error")
	log.SetOutput(io.Discard)
	return log
}

func testMetrics() *metrics.Metrics {
	return metrics.NewWith(prometheus.NewRegistry())
}

func testBroker() *infrastructure.EventBroker {
	return infrastructure.NewEventBroker(testLogger(), testMetrics())
}

func testBillingConfig() config.BillingConfig {
	return config.BillingConfig{
		DefaultInitialBudget: dec("100.00"),
		PeakStartHour:        9,
		PeakEndHour:          17,
		PeakMultiplier:       dec("1.2"),
		OffPeakMultiplier:    dec("0.8"),
	}
}

func testIngestConfig() config.IngestConfig {
	return config.IngestConfig{
		RateLimitPerSecond: 100,
		RateLimitBurst:     20,
		DefaultBidAmount:   dec("0.50"),
		DefaultCurrency:    "USD",
	}
}

func cleanClick(id string) domain.ClickEvent {
	return domain.ClickEvent{
		EventID:      id,
		Timestamp:    time.Now().UTC(),
		AdID:         "ad-101",
		CampaignID:   "camp-201",
		AdvertiserID: "adv-501",
		BidAmount:    dec("0.75"),
		Currency:     "USD",
		IPAddress:    "203.0.113.42",
		UserAgent:    "Mozilla/5.0",
		Referrer:     "https://example.com",
	}
}

// collect subscribes a buffering handler to a topic and returns the
// channel it fills.
func collect(bus domain.EventBus, topic string) chan domain.Event {
	ch := make(chan domain.Event, 16)
	bus.Subscribe(topic, func(evt domain.Event) { ch <- evt })
	return ch
}
