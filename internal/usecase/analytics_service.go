package usecase

import (
	"sort"
	"sync"

	"adpipe/internal/domain"
	"adpipe/pkg/logger"

	"github.com/shopspring/decimal"
)

// AnalyticsService accumulates rolling aggregates from billed
// transactions. Counters only grow; derived values (averages) are computed
// at query time so they can never drift from the counters.
type AnalyticsService struct {
	bus    domain.EventBus
	logger *logger.Logger

	sub domain.Subscription

	mu           sync.RWMutex
	totalClicks  int
	totalRevenue decimal.Decimal
	byCampaign   map[string]*domain.AggregateBucket
	byAdvertiser map[string]*domain.AggregateBucket
	byHour       map[int]*domain.AggregateBucket
}

func NewAnalyticsService(bus domain.EventBus, logger *logger.Logger) *AnalyticsService {
	return &AnalyticsService{
		bus:          bus,
		logger:       logger,
		totalRevenue: decimal.Zero,
		byCampaign:   make(map[string]*domain.AggregateBucket),
		byAdvertiser: make(map[string]*domain.AggregateBucket),
		byHour:       make(map[int]*domain.AggregateBucket),
	}
}

// Start subscribes to the transaction topic.
func (s *AnalyticsService) Start() {
	s.sub = s.bus.Subscribe(domain.TopicBillingEvents, s.handleTransaction)
	s.logger.WithField("topic", domain.TopicBillingEvents).Info("Analytics service subscribed")
}

// Stop removes the subscription.
func (s *AnalyticsService) Stop() {
	if s.sub != nil {
		s.bus.Unsubscribe(s.sub)
		s.sub = nil
	}
}

func (s *AnalyticsService) handleTransaction(evt domain.Event) {
	txn, ok := evt.Payload.(domain.Transaction)
	if !ok {
		s.logger.WithFields(map[string]any{
			"topic":    evt.Topic,
			"event_id": evt.ID,
		}).Warn("Unexpected payload type on billing topic")
		return
	}

	s.mu.Lock()
	s.totalClicks++
	s.totalRevenue = s.totalRevenue.Add(txn.Amount)
	bump(s.byCampaign, txn.CampaignID, txn.Amount)
	bump(s.byAdvertiser, txn.AdvertiserID, txn.Amount)
	bump(s.byHour, txn.Timestamp.Hour(), txn.Amount)
	s.mu.Unlock()

	s.logger.WithFields(map[string]any{
		"transaction_id": txn.TransactionID,
		"campaign_id":    txn.CampaignID,
		"amount":         txn.Amount.StringFixed(2),
	}).Debug("Aggregates updated")
}

func bump[K comparable](buckets map[K]*domain.AggregateBucket, key K, amount decimal.Decimal) {
	bucket, ok := buckets[key]
	if !ok {
		bucket = &domain.AggregateBucket{Revenue: decimal.Zero}
		buckets[key] = bucket
	}
	bucket.Clicks++
	bucket.Revenue = bucket.Revenue.Add(amount)
}

// Stats returns the summary snapshot with derived averages computed from
// the live counters.
func (s *AnalyticsService) Stats() domain.AnalyticsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.AnalyticsSummary{
		TotalClicks:            s.totalClicks,
		TotalRevenue:           s.totalRevenue,
		AverageRevenuePerClick: decimal.Zero,
		CampaignCount:          len(s.byCampaign),
		AdvertiserCount:        len(s.byAdvertiser),
	}
	if s.totalClicks > 0 {
		summary.AverageRevenuePerClick = s.totalRevenue.
			Div(decimal.NewFromInt(int64(s.totalClicks))).Round(2)
	}
	return summary
}

// DetailedMetrics returns the full report, rows sorted by key for stable
// output.
func (s *AnalyticsService) DetailedMetrics() domain.DetailedMetrics {
	summary := s.Stats()

	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DetailedMetrics{
		Summary:      summary,
		ByCampaign:   make([]domain.CampaignMetrics, 0, len(s.byCampaign)),
		ByAdvertiser: make([]domain.AdvertiserMetrics, 0, len(s.byAdvertiser)),
		ByHour:       make([]domain.HourlyMetrics, 0, len(s.byHour)),
	}

	for id, bucket := range s.byCampaign {
		report.ByCampaign = append(report.ByCampaign, domain.CampaignMetrics{
			CampaignID: id,
			Clicks:     bucket.Clicks,
			Revenue:    bucket.Revenue,
			AverageCPC: averageCPC(bucket),
		})
	}
	sort.Slice(report.ByCampaign, func(i, j int) bool {
		return report.ByCampaign[i].CampaignID < report.ByCampaign[j].CampaignID
	})

	for id, bucket := range s.byAdvertiser {
		report.ByAdvertiser = append(report.ByAdvertiser, domain.AdvertiserMetrics{
			AdvertiserID: id,
			Clicks:       bucket.Clicks,
			Revenue:      bucket.Revenue,
			AverageCPC:   averageCPC(bucket),
		})
	}
	sort.Slice(report.ByAdvertiser, func(i, j int) bool {
		return report.ByAdvertiser[i].AdvertiserID < report.ByAdvertiser[j].AdvertiserID
	})

	for hour, bucket := range s.byHour {
		report.ByHour = append(report.ByHour, domain.HourlyMetrics{
			Hour:    hour,
			Clicks:  bucket.Clicks,
			Revenue: bucket.Revenue,
		})
	}
	sort.Slice(report.ByHour, func(i, j int) bool {
		return report.ByHour[i].Hour < report.ByHour[j].Hour
	})

	return report
}

func averageCPC(bucket *domain.AggregateBucket) decimal.Decimal {
	if bucket.Clicks == 0 {
		return decimal.Zero
	}
	return bucket.Revenue.Div(decimal.NewFromInt(int64(bucket.Clicks))).Round(2)
}
