package infrastructure

import (
	"sort"
	"sync"

	"adpipe/internal/domain"
	"adpipe/pkg/logger"

	"github.com/shopspring/decimal"
)

// BudgetStore keeps every advertiser budget in memory behind a per-entry
// mutex, so the check-and-decrement of a debit is one critical section per
// advertiser. Two concurrently billed clicks against the same advertiser
// serialize on that entry and can never both spend the same remainder.
type BudgetStore struct {
	defaultInitial decimal.Decimal
	logger         *logger.Logger

	mu      sync.RWMutex
	entries map[string]*budgetEntry
}

type budgetEntry struct {
	mu        sync.Mutex
	initial   decimal.Decimal
	remaining decimal.Decimal
	spent     decimal.Decimal
}

func NewBudgetStore(defaultInitial decimal.Decimal, logger *logger.Logger) *BudgetStore {
	return &BudgetStore{
		defaultInitial: defaultInitial,
		logger:         logger,
		entries:        make(map[string]*budgetEntry),
	}
}

// Provision creates or replaces the budget for an advertiser.
func (s *BudgetStore) Provision(advertiserID string, initial decimal.Decimal) {
	s.mu.Lock()
	s.entries[advertiserID] = &budgetEntry{
		initial:   initial,
		remaining: initial,
		spent:     decimal.Zero,
	}
	s.mu.Unlock()

	s.logger.WithFields(map[string]any{
		"advertiser_id": advertiserID,
		"initial":       initial.StringFixed(2),
	}).Info("Budget provisioned")
}

// Debit atomically checks and decrements the advertiser's budget. An
// advertiser seen for the first time is created with the default initial
// budget. On ErrInsufficientBudget the budget is left unchanged.
func (s *BudgetStore) Debit(advertiserID string, amount decimal.Decimal) (decimal.Decimal, error) {
	entry := s.entry(advertiserID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.remaining.LessThan(amount) {
		return entry.remaining, domain.ErrInsufficientBudget
	}

	entry.remaining = entry.remaining.Sub(amount)
	entry.spent = entry.spent.Add(amount)
	return entry.remaining, nil
}

func (s *BudgetStore) Get(advertiserID string) (domain.AdvertiserBudget, bool) {
	s.mu.RLock()
	entry, ok := s.entries[advertiserID]
	s.mu.RUnlock()
	if !ok {
		return domain.AdvertiserBudget{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return domain.AdvertiserBudget{
		AdvertiserID: advertiserID,
		Initial:      entry.initial,
		Remaining:    entry.remaining,
		Spent:        entry.spent,
	}, true
}

// Snapshot returns a copy of every budget, ordered by advertiser id.
func (s *BudgetStore) Snapshot() []domain.AdvertiserBudget {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)

	budgets := make([]domain.AdvertiserBudget, 0, len(ids))
	for _, id := range ids {
		if budget, ok := s.Get(id); ok {
			budgets = append(budgets, budget)
		}
	}
	return budgets
}

// entry returns the live entry for an advertiser, creating it lazily with
// the default initial budget.
func (s *BudgetStore) entry(advertiserID string) *budgetEntry {
	s.mu.RLock()
	entry, ok := s.entries[advertiserID]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok = s.entries[advertiserID]; ok {
		return entry
	}

	entry = &budgetEntry{
		initial:   s.defaultInitial,
		remaining: s.defaultInitial,
		spent:     decimal.Zero,
	}
	s.entries[advertiserID] = entry

	s.logger.WithFields(map[string]any{
		"advertiser_id": advertiserID,
		"initial":       s.defaultInitial.StringFixed(2),
	}).Info("Budget created with default initial amount")

	return entry
}
