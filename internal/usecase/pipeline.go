package usecase

import (
	"adpipe/internal/domain"
	"adpipe/pkg/logger"
)

// Pipeline wires the three stages to the broker. Stages never reference
// each other; the topology exists only through topic names.
type Pipeline struct {
	bus       domain.EventBus
	budgets   domain.BudgetStore
	fraud     *FraudService
	billing   *BillingService
	analytics *AnalyticsService
	logger    *logger.Logger
}

// PipelineStats aggregates the stats surface of the whole pipeline.
type PipelineStats struct {
	Broker    domain.BrokerStats        `json:"broker"`
	Fraud     FraudStats                `json:"fraud"`
	Billing   BillingStats              `json:"billing"`
	Analytics domain.AnalyticsSummary   `json:"analytics"`
	Budgets   []domain.AdvertiserBudget `json:"budgets"`
}

func NewPipeline(
	bus domain.EventBus,
	budgets domain.BudgetStore,
	fraud *FraudService,
	billing *BillingService,
	analytics *AnalyticsService,
	logger *logger.Logger,
) *Pipeline {
	return &Pipeline{
		bus:       bus,
		budgets:   budgets,
		fraud:     fraud,
		billing:   billing,
		analytics: analytics,
		logger:    logger,
	}
}

// Start subscribes every stage, downstream stages first so nothing
// published by an upstream stage can miss its consumer.
func (p *Pipeline) Start() {
	p.analytics.Start()
	p.billing.Start()
	p.fraud.Start()
	p.logger.Info("Pipeline started")
}

// Stop unsubscribes every stage, upstream stages first.
func (p *Pipeline) Stop() {
	p.fraud.Stop()
	p.billing.Stop()
	p.analytics.Stop()
	p.logger.Info("Pipeline stopped")
}

func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Broker:    p.bus.Stats(),
		Fraud:     p.fraud.Stats(),
		Billing:   p.billing.Stats(),
		Analytics: p.analytics.Stats(),
		Budgets:   p.budgets.Snapshot(),
	}
}

// DetailedMetrics exposes the analytics report through the pipeline.
func (p *Pipeline) DetailedMetrics() domain.DetailedMetrics {
	return p.analytics.DetailedMetrics()
}
