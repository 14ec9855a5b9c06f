package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Broker metrics
	BrokerPublished       *prometheus.CounterVec
	BrokerHandlerFailures *prometheus.CounterVec
	BrokerSubscribers     *prometheus.GaugeVec

	// Pipeline metrics
	ClicksIngested     prometheus.Counter
	FraudDecisions     *prometheus.CounterVec
	TransactionsBilled prometheus.Counter
	RevenueBilled      prometheus.Counter
	BudgetExceeded     prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all collectors against the given registerer. Tests use
// a fresh registry per test to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		BrokerPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_messages_published_total",
				Help: "Total number of messages published per topic",
			},
			[]string{"topic"},
		),

		BrokerHandlerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_handler_failures_total",
				Help: "Total number of subscriber handler failures per topic",
			},
			[]string{"topic"},
		),

		BrokerSubscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "broker_subscribers",
				Help: "Number of handlers currently subscribed per topic",
			},
			[]string{"topic"},
		),

		ClicksIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clicks_ingested_total",
				Help: "Total number of click events accepted by ingestion",
			},
		),

		FraudDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraud_decisions_total",
				Help: "Total number of fraud decisions by outcome",
			},
			[]string{"decision"},
		),

		TransactionsBilled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_transactions_total",
				Help: "Total number of billed transactions",
			},
		),

		RevenueBilled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_revenue_cents_total",
				Help: "Total billed revenue in cents",
			},
		),

		BudgetExceeded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_budget_exceeded_total",
				Help: "Total number of clicks dropped for insufficient budget",
			},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Broker publish metrics
func (m *Metrics) RecordPublish(topic string) {
	m.BrokerPublished.WithLabelValues(topic).Inc()
}

// Broker handler failure metrics
func (m *Metrics) RecordHandlerFailure(topic string) {
	m.BrokerHandlerFailures.WithLabelValues(topic).Inc()
}

// Broker subscriber gauge
func (m *Metrics) SetSubscriberCount(topic string, count int) {
	m.BrokerSubscribers.WithLabelValues(topic).Set(float64(count))
}

// Ingested click counter
func (m *Metrics) RecordClickIngested() {
	m.ClicksIngested.Inc()
}

// Fraud decision counter
func (m *Metrics) RecordFraudDecision(decision string) {
	m.FraudDecisions.WithLabelValues(decision).Inc()
}

// Billed transaction counters
func (m *Metrics) RecordTransaction(amountCents int64) {
	m.TransactionsBilled.Inc()
	m.RevenueBilled.Add(float64(amountCents))
}

// Budget exceeded counter
func (m *Metrics) RecordBudgetExceeded() {
	m.BudgetExceeded.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
