package infrastructure

import (
	"sync"
	"testing"

	"adpipe/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testBudgetStore() *BudgetStore {
	return NewBudgetStore(dec("100.00"), testLogger())
}

func requireDecimalEqual(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	require.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestDebitMaintainsBudgetInvariant(t *testing.T) {
	store := testBudgetStore()
	store.Provision("adv-501", dec("150.00"))

	remaining, err := store.Debit("adv-501", dec("30.25"))
	require.NoError(t, err)
	requireDecimalEqual(t, dec("119.75"), remaining)

	budget, ok := store.Get("adv-501")
	require.True(t, ok)
	requireDecimalEqual(t, dec("150.00"), budget.Initial)
	requireDecimalEqual(t, dec("30.25"), budget.Spent)
	requireDecimalEqual(t, budget.Initial.Sub(budget.Spent), budget.Remaining)
}

func TestDebitInsufficientBudgetLeavesStateUnchanged(t *testing.T) {
	store := testBudgetStore()
	store.Provision("adv-501", dec("100.00"))

	_, err := store.Debit("adv-501", dec("99.60"))
	require.NoError(t, err)

	// remaining is now 0.40; a 0.50 debit must fail without side effects
	remaining, err := store.Debit("adv-501", dec("0.50"))
	require.ErrorIs(t, err, domain.ErrInsufficientBudget)
	requireDecimalEqual(t, dec("0.40"), remaining)

	budget, _ := store.Get("adv-501")
	requireDecimalEqual(t, dec("0.40"), budget.Remaining)
	requireDecimalEqual(t, dec("99.60"), budget.Spent)
}

func TestDebitCreatesBudgetLazilyWithDefault(t *testing.T) {
	store := testBudgetStore()

	_, ok := store.Get("adv-new")
	require.False(t, ok)

	remaining, err := store.Debit("adv-new", dec("12.50"))
	require.NoError(t, err)
	requireDecimalEqual(t, dec("87.50"), remaining)

	budget, ok := store.Get("adv-new")
	require.True(t, ok)
	requireDecimalEqual(t, dec("100.00"), budget.Initial)
}

func TestConcurrentDebitsNeverDoubleSpend(t *testing.T) {
	store := testBudgetStore()
	store.Provision("adv-501", dec("100.00"))

	const attempts = 3
	results := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.Debit("adv-501", dec("40.00"))
		}(i)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientBudget)
			failed++
		}
	}

	// 100.00 only affords two 40.00 debits.
	require.Equal(t, 2, succeeded)
	require.Equal(t, 1, failed)

	budget, _ := store.Get("adv-501")
	requireDecimalEqual(t, dec("20.00"), budget.Remaining)
	requireDecimalEqual(t, dec("80.00"), budget.Spent)
}

func TestSnapshotOrderedByAdvertiser(t *testing.T) {
	store := testBudgetStore()
	store.Provision("adv-502", dec("150.00"))
	store.Provision("adv-501", dec("100.00"))
	store.Provision("adv-504", dec("120.00"))

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 3)
	require.Equal(t, "adv-501", snapshot[0].AdvertiserID)
	require.Equal(t, "adv-502", snapshot[1].AdvertiserID)
	require.Equal(t, "adv-504", snapshot[2].AdvertiserID)
}
