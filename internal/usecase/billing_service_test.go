package usecase

import (
	"strings"
	"sync"
	"testing"
	"time"

	"adpipe/internal/domain"
	"adpipe/internal/infrastructure"

	"github.com/stretchr/testify/require"
)

func validatedClick(id string, score float64) domain.ValidatedClick {
	decision := domain.DecisionValid
	if score >= thresholdSuspicious {
		decision = domain.DecisionSuspicious
	}
	return domain.ValidatedClick{
		ClickEvent: cleanClick(id),
		FraudScore: score,
		Decision:   decision,
	}
}

func newBillingService(clock domain.Clock) (*BillingService, *infrastructure.EventBroker, *infrastructure.BudgetStore) {
	broker := testBroker()
	budgets := infrastructure.NewBudgetStore(dec("100.00"), testLogger())
	svc := NewBillingService(broker, budgets, clock, testBillingConfig(), testLogger(), testMetrics())
	return svc, broker, budgets
}

func TestComputeCostAppliesQualityAndTimeMultiplier(t *testing.T) {
	tests := []struct {
		name  string
		hour  int
		score float64
		bid   string
		want  string
	}{
		{"peak full quality", 10, 0, "1.00", "1.20"},
		{"peak half quality", 10, 0.5, "1.00", "0.60"},
		{"off peak full quality", 20, 0, "1.00", "0.80"},
		{"off peak half quality", 20, 0.5, "1.00", "0.40"},
		{"peak window start is inclusive", 9, 0, "1.00", "1.20"},
		{"peak window end is inclusive", 17, 0, "1.00", "1.20"},
		{"just before peak", 8, 0, "1.00", "0.80"},
		{"just after peak", 18, 0, "1.00", "0.80"},
		{"rounds to cents", 10, 0.33, "0.75", "0.60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newBillingService(clockAt(tt.hour))

			click := validatedClick("click-1", tt.score)
			click.BidAmount = dec(tt.bid)

			requireDecimalEqual(t, dec(tt.want), svc.ComputeCost(click))
		})
	}
}

func TestProcessBillsClickAndPublishesTransaction(t *testing.T) {
	svc, broker, budgets := newBillingService(clockAt(10))
	billed := collect(broker, domain.TopicBillingEvents)

	// bid 0.75, score 0, peak: cost = 0.75 * 1.2 = 0.90
	svc.Process(validatedClick("click-1", 0))

	select {
	case evt := <-billed:
		txn := evt.Payload.(domain.Transaction)
		require.True(t, strings.HasPrefix(txn.TransactionID, "txn_"))
		require.Equal(t, "click-1", txn.ClickEventID)
		require.Equal(t, "adv-501", txn.AdvertiserID)
		require.Equal(t, "camp-201", txn.CampaignID)
		require.Equal(t, "USD", txn.Currency)
		requireDecimalEqual(t, dec("0.90"), txn.Amount)
		requireDecimalEqual(t, dec("99.10"), txn.BudgetRemainingAfter)
	case <-time.After(time.Second):
		t.Fatal("transaction was never published")
	}

	budget, ok := budgets.Get("adv-501")
	require.True(t, ok)
	requireDecimalEqual(t, dec("99.10"), budget.Remaining)

	stats := svc.Stats()
	require.Equal(t, 1, stats.ClicksBilled)
	require.Equal(t, 0, stats.BudgetExceeded)
	requireDecimalEqual(t, dec("0.90"), stats.TotalRevenue)
	requireDecimalEqual(t, dec("0.90"), stats.CampaignSpend["camp-201"])
}

func TestProcessDropsClickOnExhaustedBudget(t *testing.T) {
	svc, broker, budgets := newBillingService(clockAt(20))
	billed := collect(broker, domain.TopicBillingEvents)

	// Leave 0.40 in the budget, then bill a click costing 0.50.
	_, err := budgets.Debit("adv-501", dec("99.60"))
	require.NoError(t, err)

	click := validatedClick("click-1", 0)
	click.BidAmount = dec("0.625") // 0.625 * 0.8 = 0.50
	svc.Process(click)

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, billed)

	budget, ok := budgets.Get("adv-501")
	require.True(t, ok)
	requireDecimalEqual(t, dec("0.40"), budget.Remaining)

	stats := svc.Stats()
	require.Equal(t, 0, stats.ClicksBilled)
	require.Equal(t, 1, stats.BudgetExceeded)
	requireDecimalEqual(t, dec("0"), stats.TotalRevenue)
}

func TestConcurrentProcessingNeverOverdraws(t *testing.T) {
	svc, broker, budgets := newBillingService(clockAt(20))
	billed := collect(broker, domain.TopicBillingEvents)

	// Each click costs 50 * 0.8 = 40.00 against a 100.00 budget, so exactly
	// two of the three can be billed no matter how the debits interleave.
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			click := validatedClick("click-1", 0)
			click.BidAmount = dec("50")
			svc.Process(click)
		}()
	}
	wg.Wait()

	stats := svc.Stats()
	require.Equal(t, 2, stats.ClicksBilled)
	require.Equal(t, 1, stats.BudgetExceeded)
	requireDecimalEqual(t, dec("80.00"), stats.TotalRevenue)

	budget, ok := budgets.Get("adv-501")
	require.True(t, ok)
	requireDecimalEqual(t, dec("20.00"), budget.Remaining)

	require.Eventually(t, func() bool { return len(billed) == 2 }, time.Second, 10*time.Millisecond)
}

func TestBillingSubscriberBillsValidatedClicks(t *testing.T) {
	svc, broker, _ := newBillingService(clockAt(10))
	billed := collect(broker, domain.TopicBillingEvents)

	svc.Start()
	defer svc.Stop()

	broker.Publish(domain.TopicValidatedClicks, validatedClick("click-1", 0.5))

	select {
	case evt := <-billed:
		txn := evt.Payload.(domain.Transaction)
		// 0.75 * 0.5 * 1.2 = 0.45
		requireDecimalEqual(t, dec("0.45"), txn.Amount)
		require.Equal(t, clockAt(10).Now(), txn.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("transaction was never published")
	}
}
