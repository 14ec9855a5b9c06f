package domain

import "github.com/shopspring/decimal"

// AggregateBucket is one monotonically accumulating clicks/revenue pair,
// keyed by campaign, advertiser or hour-of-day depending on the map it
// lives in.
type AggregateBucket struct {
	Clicks  int             `json:"clicks"`
	Revenue decimal.Decimal `json:"revenue"`
}

// AnalyticsSummary is the top-level analytics snapshot. Derived values are
// computed at query time from the accumulated counters, never stored.
type AnalyticsSummary struct {
	TotalClicks            int             `json:"total_clicks"`
	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	AverageRevenuePerClick decimal.Decimal `json:"average_revenue_per_click"`
	CampaignCount          int             `json:"campaign_count"`
	AdvertiserCount        int             `json:"advertiser_count"`
}

// CampaignMetrics is the per-campaign row in the detailed report.
type CampaignMetrics struct {
	CampaignID string          `json:"campaign_id"`
	Clicks     int             `json:"clicks"`
	Revenue    decimal.Decimal `json:"revenue"`
	AverageCPC decimal.Decimal `json:"avg_cpc"`
}

// AdvertiserMetrics is the per-advertiser row in the detailed report.
type AdvertiserMetrics struct {
	AdvertiserID string          `json:"advertiser_id"`
	Clicks       int             `json:"clicks"`
	Revenue      decimal.Decimal `json:"revenue"`
	AverageCPC   decimal.Decimal `json:"avg_cpc"`
}

// HourlyMetrics is the per-hour-of-day row in the detailed report.
type HourlyMetrics struct {
	Hour    int             `json:"hour"`
	Clicks  int             `json:"clicks"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DetailedMetrics is the full analytics report.
type DetailedMetrics struct {
	Summary      AnalyticsSummary    `json:"summary"`
	ByCampaign   []CampaignMetrics   `json:"by_campaign"`
	ByAdvertiser []AdvertiserMetrics `json:"by_advertiser"`
	ByHour       []HourlyMetrics     `json:"by_hour"`
}
