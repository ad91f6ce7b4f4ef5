package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Derived views
// ============================================================

// Totals is the headline summary of a transaction list.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

// MonthlyPoint aggregates one calendar month.
type MonthlyPoint struct {
	Label   string          `json:"name"`
	Year    int             `json:"year"`
	Month   time.Month      `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	SortKey int64           `json:"sortKey"` // epoch ms of the first day of the month
}

// CategorySlice is one expense category, its total and its share of
// total expense in percent.
type CategorySlice struct {
	Name    string          `json:"name"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// Dashboard bundles every derived view of one snapshot.
type Dashboard struct {
	Totals     Totals          `json:"totals"`
	Monthly    []MonthlyPoint  `json:"monthly"`
	Categories []CategorySlice `json:"categories"`
}
