package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Ledger entries
// ============================================================

// Kind distinguishes money coming in from money going out.
type Kind string

const (
	KindIncome  Kind = "INCOME"
	KindExpense Kind = "EXPENSE"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is a single immutable ledger entry.
// Amount is never negative; the sign comes from Kind.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	ClientName  string          `json:"clientName,omitempty"`
	OccurredAt  time.Time       `json:"date"`
	Timestamp   int64           `json:"timestamp"` // epoch ms
}

// IsIncome reports whether the transaction adds to the balance.
func (t Transaction) IsIncome() bool { return t.Kind == KindIncome }

// IsExpense reports whether the transaction subtracts from the balance.
func (t Transaction) IsExpense() bool { return t.Kind == KindExpense }

// NewTransaction is the operator input for a ledger entry before an id
// and a timestamp are assigned.
type NewTransaction struct {
	Kind        Kind             `json:"type"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	ClientName  string           `json:"clientName,omitempty"`
}

// TransactionCreated is returned after a successful add.
type TransactionCreated struct {
	Transaction  Transaction   `json:"transaction"`
	Transactions []Transaction `json:"transactions"`
}
