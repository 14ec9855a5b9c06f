package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topic names shared by every pipeline stage. Publishers and subscribers
// agree on these constants and never reference each other directly.
const (
	TopicClickEvents     = "click-events"
	TopicValidatedClicks = "validated-clicks"
	TopicFraudAlerts     = "fraud-alerts"
	TopicBillingEvents   = "billing-events"
)

// ClickEvent is a single ad click as received by ingestion. Immutable once
// published to the broker.
type ClickEvent struct {
	EventID      string          `json:"event_id"`
	Timestamp    time.Time       `json:"timestamp"`
	AdID         string          `json:"ad_id"`
	CampaignID   string          `json:"campaign_id"`
	AdvertiserID string          `json:"advertiser_id"`
	PublisherID  string          `json:"publisher_id,omitempty"`
	BidAmount    decimal.Decimal `json:"bid_amount"`
	Currency     string          `json:"currency"`
	IPAddress    string          `json:"ip_address"`
	UserAgent    string          `json:"user_agent"`
	Referrer     string          `json:"referrer,omitempty"`
}

// FraudDecision classifies the outcome of fraud analysis.
type FraudDecision string

const (
	DecisionValid      FraudDecision = "valid"
	DecisionSuspicious FraudDecision = "suspicious"
	DecisionFraud      FraudDecision = "fraud"
)

// FraudAnalysis is produced exactly once per ClickEvent.
type FraudAnalysis struct {
	FraudScore float64       `json:"fraud_score"`
	Decision   FraudDecision `json:"decision"`
	Indicators []string      `json:"indicators"`
	Reason     string        `json:"reason"`
	AnalyzedAt time.Time     `json:"analyzed_at"`
}

// ValidatedClick is a ClickEvent that passed fraud screening. The decision
// is carried along so suspicious clicks stay auditable downstream.
type ValidatedClick struct {
	ClickEvent
	FraudScore float64       `json:"fraud_score"`
	Decision   FraudDecision `json:"decision"`
}

// FraudAlert terminates the pipeline for a fraudulent click.
type FraudAlert struct {
	ClickEventID  string        `json:"click_event_id"`
	FraudAnalysis FraudAnalysis `json:"fraud_analysis"`
}
