package delivery

import (
	"encoding/base64"
	"net/http"

	"adpipe/internal/domain"
	"adpipe/internal/usecase"
	"adpipe/pkg/logger"
	"adpipe/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// 1x1 transparent PNG served by the pixel endpoint.
var trackingPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// handles HTTP requests
type HTTPHandlers struct {
	ingest   *usecase.IngestService
	pipeline *usecase.Pipeline
	bus      domain.EventBus
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// creates new HTTP handlers
func NewHTTPHandlers(
	ingest *usecase.IngestService,
	pipeline *usecase.Pipeline,
	bus domain.EventBus,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *HTTPHandlers {
	return &HTTPHandlers{
		ingest:   ingest,
		pipeline: pipeline,
		bus:      bus,
		logger:   logger,
		metrics:  metrics,
	}
}

type clickRequest struct {
	AdID         string  `json:"ad_id" binding:"required"`
	CampaignID   string  `json:"campaign_id" binding:"required"`
	AdvertiserID string  `json:"advertiser_id" binding:"required"`
	PublisherID  string  `json:"publisher_id"`
	BidAmount    float64 `json:"bid_amount" binding:"omitempty,gte=0"`
	Currency     string  `json:"currency"`
	Referrer     string  `json:"referrer"`
}

// IngestClick receives an ad click and injects it into the pipeline
func (h *HTTPHandlers) IngestClick(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := c.GetString("request_id")

	var req clickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Missing required fields",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	referrer := req.Referrer
	if referrer == "" {
		referrer = c.Request.Referer()
	}

	eventID := h.ingest.Ingest(c.Request.Context(), domain.ClickEvent{
		AdID:         req.AdID,
		CampaignID:   req.CampaignID,
		AdvertiserID: req.AdvertiserID,
		PublisherID:  req.PublisherID,
		BidAmount:    decimal.NewFromFloat(req.BidAmount),
		Currency:     req.Currency,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		Referrer:     referrer,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Click received and published",
		"event_id":   eventID,
		"request_id": requestID,
	})
}

// Pixel ingests a click from a tracking pixel request and responds with a
// 1x1 transparent PNG
func (h *HTTPHandlers) Pixel(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	adID := c.Query("ad_id")
	campaignID := c.Query("campaign_id")
	advertiserID := c.Query("advertiser_id")
	if adID == "" || campaignID == "" || advertiserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Missing required fields",
			"request_id": c.GetString("request_id"),
		})
		return
	}

	bidAmount := decimal.Zero
	if raw := c.Query("bid_amount"); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil && !parsed.IsNegative() {
			bidAmount = parsed
		}
	}

	h.ingest.Ingest(c.Request.Context(), domain.ClickEvent{
		AdID:         adID,
		CampaignID:   campaignID,
		AdvertiserID: advertiserID,
		PublisherID:  c.Query("publisher_id"),
		BidAmount:    bidAmount,
		Currency:     c.Query("currency"),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		Referrer:     c.Request.Referer(),
	})

	c.Data(http.StatusOK, "image/png", trackingPixel)
}

// GetStats returns the pipeline-wide stats snapshot
func (h *HTTPHandlers) GetStats(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	stats := h.pipeline.Stats()

	c.JSON(http.StatusOK, gin.H{
		"clicks_received": h.ingest.ClicksReceived(),
		"broker":          stats.Broker,
		"fraud":           stats.Fraud,
		"billing":         stats.Billing,
		"analytics":       stats.Analytics,
		"budgets":         stats.Budgets,
		"request_id":      c.GetString("request_id"),
	})
}

// GetDetailedMetrics returns the full analytics report
func (h *HTTPHandlers) GetDetailedMetrics(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	report := h.pipeline.DetailedMetrics()

	c.JSON(http.StatusOK, gin.H{
		"summary":       report.Summary,
		"by_campaign":   report.ByCampaign,
		"by_advertiser": report.ByAdvertiser,
		"by_hour":       report.ByHour,
		"request_id":    c.GetString("request_id"),
	})
}

// GetBudgets returns the advertiser budget summary
func (h *HTTPHandlers) GetBudgets(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	c.JSON(http.StatusOK, gin.H{
		"budgets":    h.pipeline.Stats().Budgets,
		"request_id": c.GetString("request_id"),
	})
}

// GetHistory returns the broker's audit log, optionally filtered by topic
func (h *HTTPHandlers) GetHistory(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	topic := c.Query("topic")
	events := h.bus.History(topic)

	c.JSON(http.StatusOK, gin.H{
		"events":     events,
		"count":      len(events),
		"topic":      topic,
		"request_id": c.GetString("request_id"),
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         "ad-click-pipeline",
		"clicks_received": h.ingest.ClicksReceived(),
		"request_id":      c.GetString("request_id"),
	})
}
