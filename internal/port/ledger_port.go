package port

import (
	"context"

	"github.com/ivision/agency-books/internal/domain"
)

// TransactionRepository owns the canonical transaction list.
// Every read returns a copy in store order (newest first).
type TransactionRepository interface {
	Load(ctx context.Context) []domain.Transaction
	Add(ctx context.Context, tx domain.Transaction) ([]domain.Transaction, error)
	Remove(ctx context.Context, id string) ([]domain.Transaction, error)
	ClearAll(ctx context.Context) error
}

// AnalysisRepository owns the last successful summary text.
type AnalysisRepository interface {
	LoadStoredSummary(ctx context.Context) (string, bool)
	SaveSummary(ctx context.Context, text string) error
	ClearSummary(ctx context.Context) error
}
