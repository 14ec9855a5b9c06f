package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBudget is returned by a budget debit when the advertiser
// cannot afford the requested amount. It is a business outcome, not a
// failure: the click is dropped and the budget left untouched.
var ErrInsufficientBudget = errors.New("insufficient budget")

// Transaction records one billed click. Immutable once published.
type Transaction struct {
	TransactionID        string          `json:"transaction_id"`
	ClickEventID         string          `json:"click_event_id"`
	AdvertiserID         string          `json:"advertiser_id"`
	CampaignID           string          `json:"campaign_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	BudgetRemainingAfter decimal.Decimal `json:"budget_remaining_after"`
	Timestamp            time.Time       `json:"timestamp"`
}

// AdvertiserBudget is the spending state for one advertiser.
// Invariant: Remaining = Initial - Spent, Remaining >= 0.
type AdvertiserBudget struct {
	AdvertiserID string          `json:"advertiser_id"`
	Initial      decimal.Decimal `json:"initial"`
	Remaining    decimal.Decimal `json:"remaining"`
	Spent        decimal.Decimal `json:"spent"`
}

// BudgetStore owns all advertiser budgets. Debit must perform the
// check-and-decrement as one atomic step per advertiser so that two
// concurrently billed clicks can never both spend the same remainder.
type BudgetStore interface {
	// Provision creates or replaces a budget with the given initial amount.
	Provision(advertiserID string, initial decimal.Decimal)
	// Debit atomically checks and decrements the advertiser's budget,
	// creating it with the default initial amount on first sight. It
	// returns the remaining budget after the debit, or
	// ErrInsufficientBudget with the budget unchanged.
	Debit(advertiserID string, amount decimal.Decimal) (decimal.Decimal, error)
	// Get returns a copy of one advertiser's budget.
	Get(advertiserID string) (AdvertiserBudget, bool)
	// Snapshot returns a copy of every budget, ordered by advertiser id.
	Snapshot() []AdvertiserBudget
}
