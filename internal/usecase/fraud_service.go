package usecase

import (
	"math"
	"net/netip"
	"strings"
	"sync"
	"time"

	"adpipe/internal/domain"
	"adpipe/pkg/logger"
	"adpipe/pkg/metrics"
)

// Indicator weights. Independent and non-exclusive: a click can trigger
// several at once.
const (
	weightPrivateIP      = 0.3
	weightMissingUA      = 0.2
	weightBotUA          = 0.5
	weightMissingReferer = 0.1

	thresholdFraud      = 0.7
	thresholdSuspicious = 0.4
)

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

// FraudService scores raw clicks and routes each one to exactly one of the
// validated-clicks or fraud-alerts topics.
type FraudService struct {
	bus     domain.EventBus
	jitter  domain.JitterSource
	logger  *logger.Logger
	metrics *metrics.Metrics

	sub domain.Subscription

	mu            sync.Mutex
	processed     int
	fraudDetected int
}

// FraudStats is the per-stage counter snapshot.
type FraudStats struct {
	Processed     int     `json:"processed"`
	FraudDetected int     `json:"fraud_detected"`
	FraudRate     float64 `json:"fraud_rate"`
}

func NewFraudService(
	bus domain.EventBus,
	jitter domain.JitterSource,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *FraudService {
	return &FraudService{
		bus:     bus,
		jitter:  jitter,
		logger:  logger,
		metrics: metrics,
	}
}

// Start subscribes to the raw click topic.
func (s *FraudService) Start() {
	s.sub = s.bus.Subscribe(domain.TopicClickEvents, s.handleClick)
	s.logger.WithField("topic", domain.TopicClickEvents).Info("Fraud service subscribed")
}

// Stop removes the subscription.
func (s *FraudService) Stop() {
	if s.sub != nil {
		s.bus.Unsubscribe(s.sub)
		s.sub = nil
	}
}

func (s *FraudService) handleClick(evt domain.Event) {
	click, ok := evt.Payload.(domain.ClickEvent)
	if !ok {
		s.logger.WithFields(map[string]any{
			"topic":    evt.Topic,
			"event_id": evt.ID,
		}).Warn("Unexpected payload type on click topic")
		return
	}

	analysis := s.Analyze(click)

	s.mu.Lock()
	s.processed++
	if analysis.Decision == domain.DecisionFraud {
		s.fraudDetected++
	}
	s.mu.Unlock()

	s.metrics.RecordFraudDecision(string(analysis.Decision))

	log := s.logger.WithFields(map[string]any{
		"click_event_id": click.EventID,
		"fraud_score":    analysis.FraudScore,
		"decision":       analysis.Decision,
	})

	if analysis.Decision == domain.DecisionFraud {
		log.WithField("indicators", analysis.Indicators).Warn("Fraud detected, click blocked")
		s.bus.Publish(domain.TopicFraudAlerts, domain.FraudAlert{
			ClickEventID:  click.EventID,
			FraudAnalysis: analysis,
		})
		return
	}

	log.Info("Click validated, forwarding to billing")
	s.bus.Publish(domain.TopicValidatedClicks, domain.ValidatedClick{
		ClickEvent: click,
		FraudScore: analysis.FraudScore,
		Decision:   analysis.Decision,
	})
}

// Analyze computes the fraud score for one click: the sum of triggered
// indicator weights plus jitter, clamped to [0,1] and rounded to two
// decimals.
func (s *FraudService) Analyze(click domain.ClickEvent) domain.FraudAnalysis {
	score := 0.0
	var indicators []string

	if addr, err := netip.ParseAddr(click.IPAddress); err == nil {
		for _, prefix := range privateRanges {
			if prefix.Contains(addr) {
				score += weightPrivateIP
				indicators = append(indicators, "private_ip_range")
				break
			}
		}
	}

	if click.UserAgent == "" || click.UserAgent == "unknown" {
		score += weightMissingUA
		indicators = append(indicators, "missing_user_agent")
	}

	if strings.Contains(strings.ToLower(click.UserAgent), "bot") {
		score += weightBotUA
		indicators = append(indicators, "bot_user_agent")
	}

	if click.Referrer == "" {
		score += weightMissingReferer
		indicators = append(indicators, "missing_referrer")
	}

	score += s.jitter.Jitter()

	score = math.Min(math.Max(score, 0), 1)
	score = math.Round(score*100) / 100

	decision := domain.DecisionValid
	reason := "Normal click pattern"
	switch {
	case score >= thresholdFraud:
		decision = domain.DecisionFraud
		reason = strings.Join(indicators, ", ")
	case score >= thresholdSuspicious:
		decision = domain.DecisionSuspicious
		reason = "Elevated fraud indicators"
	}

	return domain.FraudAnalysis{
		FraudScore: score,
		Decision:   decision,
		Indicators: indicators,
		Reason:     reason,
		AnalyzedAt: time.Now().UTC(),
	}
}

func (s *FraudService) Stats() FraudStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := FraudStats{
		Processed:     s.processed,
		FraudDetected: s.fraudDetected,
	}
	if s.processed > 0 {
		stats.FraudRate = float64(s.fraudDetected) / float64(s.processed)
	}
	return stats
}
