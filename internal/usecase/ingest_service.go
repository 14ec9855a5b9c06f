package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"adpipe/internal/domain"
	"adpipe/pkg/config"
	"adpipe/pkg/logger"
	"adpipe/pkg/metrics"

	"github.com/oklog/ulid/v2"
)

// IngestService turns validated click submissions into ClickEvents on the
// raw click topic. It is the only publisher feeding the pipeline.
type IngestService struct {
	bus     domain.EventBus
	cfg     config.IngestConfig
	logger  *logger.Logger
	metrics *metrics.Metrics

	clicksReceived atomic.Int64
}

func NewIngestService(
	bus domain.EventBus,
	cfg config.IngestConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *IngestService {
	return &IngestService{
		bus:     bus,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Ingest assigns the click its event id and timestamp, applies defaults
// for bid amount and currency, and publishes it. It returns the click's
// event id.
func (s *IngestService) Ingest(ctx context.Context, click domain.ClickEvent) string {
	click.EventID = "click_" + ulid.Make().String()
	click.Timestamp = time.Now().UTC()
	if click.BidAmount.IsZero() {
		click.BidAmount = s.cfg.DefaultBidAmount
	}
	if click.Currency == "" {
		click.Currency = s.cfg.DefaultCurrency
	}
	if click.UserAgent == "" {
		click.UserAgent = "unknown"
	}

	s.clicksReceived.Add(1)
	s.metrics.RecordClickIngested()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"click_event_id": click.EventID,
		"ad_id":          click.AdID,
		"campaign_id":    click.CampaignID,
		"advertiser_id":  click.AdvertiserID,
		"bid_amount":     click.BidAmount.StringFixed(2),
	}).Info("Click received, publishing")

	s.bus.Publish(domain.TopicClickEvents, click)

	return click.EventID
}

// ClicksReceived reports how many clicks ingestion has accepted.
func (s *IngestService) ClicksReceived() int64 {
	return s.clicksReceived.Load()
}
