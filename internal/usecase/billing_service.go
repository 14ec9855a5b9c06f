package usecase

import (
	"errors"
	"sync"

	"adpipe/internal/domain"
	"adpipe/pkg/config"
	"adpipe/pkg/logger"
	"adpipe/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingService charges advertisers for validated clicks. Budget
// enforcement is delegated to the BudgetStore, whose Debit is atomic per
// advertiser.
type BillingService struct {
	bus     domain.EventBus
	budgets domain.BudgetStore
	clock   domain.Clock
	cfg     config.BillingConfig
	logger  *logger.Logger
	metrics *metrics.Metrics

	sub domain.Subscription

	mu             sync.Mutex
	campaignSpend  map[string]decimal.Decimal
	clicksBilled   int
	budgetExceeded int
	totalRevenue   decimal.Decimal
}

// BillingStats is the per-stage counter snapshot.
type BillingStats struct {
	ClicksBilled   int                        `json:"clicks_billed"`
	BudgetExceeded int                        `json:"budget_exceeded"`
	TotalRevenue   decimal.Decimal            `json:"total_revenue"`
	CampaignSpend  map[string]decimal.Decimal `json:"campaign_spend"`
}

func NewBillingService(
	bus domain.EventBus,
	budgets domain.BudgetStore,
	clock domain.Clock,
	cfg config.BillingConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *BillingService {
	return &BillingService{
		bus:           bus,
		budgets:       budgets,
		clock:         clock,
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics,
		campaignSpend: make(map[string]decimal.Decimal),
		totalRevenue:  decimal.Zero,
	}
}

// Start subscribes to the validated click topic.
func (s *BillingService) Start() {
	s.sub = s.bus.Subscribe(domain.TopicValidatedClicks, s.handleValidatedClick)
	s.logger.WithField("topic", domain.TopicValidatedClicks).Info("Billing service subscribed")
}

// Stop removes the subscription.
func (s *BillingService) Stop() {
	if s.sub != nil {
		s.bus.Unsubscribe(s.sub)
		s.sub = nil
	}
}

func (s *BillingService) handleValidatedClick(evt domain.Event) {
	click, ok := evt.Payload.(domain.ValidatedClick)
	if !ok {
		s.logger.WithFields(map[string]any{
			"topic":    evt.Topic,
			"event_id": evt.ID,
		}).Warn("Unexpected payload type on validated click topic")
		return
	}

	s.Process(click)
}

// Process computes the cost of one validated click and either bills it,
// publishing a Transaction, or drops it on budget exhaustion. Exposed so
// concurrent billing paths share one code path with the subscriber.
func (s *BillingService) Process(click domain.ValidatedClick) {
	cost := s.ComputeCost(click)

	remaining, err := s.budgets.Debit(click.AdvertiserID, cost)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBudget) {
			s.recordBudgetExceeded()
			s.logger.WithFields(map[string]any{
				"advertiser_id":  click.AdvertiserID,
				"click_event_id": click.EventID,
				"cost":           cost.StringFixed(2),
				"remaining":      remaining.StringFixed(2),
			}).Warn("Budget exceeded, click dropped")
			return
		}
		s.logger.WithError(err).WithField("advertiser_id", click.AdvertiserID).Error("Budget debit failed")
		return
	}

	txn := domain.Transaction{
		TransactionID:        "txn_" + uuid.New().String(),
		ClickEventID:         click.EventID,
		AdvertiserID:         click.AdvertiserID,
		CampaignID:           click.CampaignID,
		Amount:               cost,
		Currency:             click.Currency,
		BudgetRemainingAfter: remaining,
		Timestamp:            s.clock.Now().UTC(),
	}

	s.mu.Lock()
	s.clicksBilled++
	s.totalRevenue = s.totalRevenue.Add(cost)
	s.campaignSpend[click.CampaignID] = s.campaignSpend[click.CampaignID].Add(cost)
	s.mu.Unlock()

	s.metrics.RecordTransaction(cost.Shift(2).IntPart())

	s.logger.WithFields(map[string]any{
		"transaction_id":   txn.TransactionID,
		"advertiser_id":    txn.AdvertiserID,
		"campaign_id":      txn.CampaignID,
		"amount":           cost.StringFixed(2),
		"budget_remaining": remaining.StringFixed(2),
	}).Info("Click billed")

	s.bus.Publish(domain.TopicBillingEvents, txn)
}

// ComputeCost prices one click: bid amount scaled by click quality
// (1 - fraud score) and the time-of-day multiplier, rounded to the nearest
// cent.
func (s *BillingService) ComputeCost(click domain.ValidatedClick) decimal.Decimal {
	quality := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(click.FraudScore))

	multiplier := s.cfg.OffPeakMultiplier
	hour := s.clock.Now().Hour()
	if hour >= s.cfg.PeakStartHour && hour <= s.cfg.PeakEndHour {
		multiplier = s.cfg.PeakMultiplier
	}

	return click.BidAmount.Mul(quality).Mul(multiplier).Round(2)
}

func (s *BillingService) recordBudgetExceeded() {
	s.mu.Lock()
	s.budgetExceeded++
	s.mu.Unlock()
	s.metrics.RecordBudgetExceeded()
}

func (s *BillingService) Stats() BillingStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	spend := make(map[string]decimal.Decimal, len(s.campaignSpend))
	for id, amount := range s.campaignSpend {
		spend[id] = amount
	}

	return BillingStats{
		ClicksBilled:   s.clicksBilled,
		BudgetExceeded: s.budgetExceeded,
		TotalRevenue:   s.totalRevenue,
		CampaignSpend:  spend,
	}
}
