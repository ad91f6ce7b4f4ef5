package service

import (
	"context"
	"strings"
	"time"

	"github.com/ivision/agency-books/internal/analytics"
	"github.com/ivision/agency-books/internal/domain"
	"github.com/ivision/agency-books/internal/infra/observability"
	"github.com/ivision/agency-books/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Operator-facing ledger messages.
const (
	MsgTransactionSaved   = "Transaction enregistrée avec succès."
	MsgTransactionDeleted = "Transaction supprimée."
)

// LedgerService is the application facade over the ledger: it builds
// entries from operator input, stores them and informs the controller.
type LedgerService struct {
	transactions port.TransactionRepository
	controller   *RefreshController
	notifier     port.Notifier
	loc          *time.Location
	now          func() time.Time
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewLedgerService creates the facade. loc is used for monthly grouping;
// nil means UTC.
func NewLedgerService(
	transactions port.TransactionRepository,
	controller *RefreshController,
	notifier port.Notifier,
	loc *time.Location,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{
		transactions: transactions,
		controller:   controller,
		notifier:     notifier,
		loc:          loc,
		now:          time.Now,
		metrics:      metrics,
		logger:       logger,
	}
}

// AddTransaction validates input, stores the new entry and triggers an
// analysis refresh in the background.
func (s *LedgerService) AddTransaction(ctx context.Context, in domain.NewTransaction) (*domain.TransactionCreated, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.AddTransaction")
	defer span.End()

	tx, err := s.build(in)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("transaction.id", tx.ID),
		attribute.String("transaction.type", string(tx.Kind)),
	)

	list, err := s.transactions.Add(ctx, tx)
	if err != nil {
		s.logger.Error("failed to store transaction", zap.String("id", tx.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("transaction recorded",
		zap.String("id", tx.ID),
		zap.String("type", string(tx.Kind)),
		zap.String("amount", tx.Amount.String()),
		zap.String("category", tx.Category),
	)
	s.notifier.Notify(MsgTransactionSaved, domain.SeveritySuccess)
	s.controller.OnTransactionAdded(ctx, list)

	return &domain.TransactionCreated{Transaction: tx, Transactions: list}, nil
}

// DeleteTransaction removes an entry. Unknown ids leave the ledger unchanged.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	list, err := s.transactions.Remove(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete transaction", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("transaction deleted", zap.String("id", id))
	s.notifier.Notify(MsgTransactionDeleted, domain.SeveritySuccess)
	s.controller.OnTransactionRemoved(ctx, list)
	return list, nil
}

// ClearAll wipes the ledger and the stored analysis.
func (s *LedgerService) ClearAll(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "LedgerService.ClearAll")
	defer span.End()

	if err := s.controller.Reset(ctx); err != nil {
		s.logger.Error("failed to clear ledger", zap.Error(err))
		return err
	}
	return nil
}

// ListTransactions returns the ledger, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context) []domain.Transaction {
	ctx, span := tracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()

	return s.transactions.Load(ctx)
}

// SearchTransactions filters the ledger by a case-insensitive substring of
// category, description or client name, keeping ledger order. A blank term
// returns the whole ledger.
func (s *LedgerService) SearchTransactions(ctx context.Context, term string) []domain.Transaction {
	ctx, span := tracer.Start(ctx, "LedgerService.SearchTransactions")
	defer span.End()

	list := s.transactions.Load(ctx)
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list
	}

	matches := make([]domain.Transaction, 0, len(list))
	for _, tx := range list {
		if matchesTerm(tx, term) {
			matches = append(matches, tx)
		}
	}
	span.SetAttributes(attribute.Int("search.matches", len(matches)))
	return matches
}

func matchesTerm(tx domain.Transaction, term string) bool {
	return strings.Contains(strings.ToLower(tx.Category), term) ||
		strings.Contains(strings.ToLower(tx.Description), term) ||
		(tx.ClientName != "" && strings.Contains(strings.ToLower(tx.ClientName), term))
}

// Dashboard computes every derived view from a fresh snapshot.
func (s *LedgerService) Dashboard(ctx context.Context) domain.Dashboard {
	ctx, span := tracer.Start(ctx, "LedgerService.Dashboard")
	defer span.End()

	start := time.Now()
	dash := analytics.Summarize(s.transactions.Load(ctx), s.loc)
	s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	return dash
}

// Totals returns income, expense and balance over the whole ledger.
func (s *LedgerService) Totals(ctx context.Context) domain.Totals {
	return analytics.Totals(s.transactions.Load(ctx))
}

// MonthlySeries returns the per-month series in chronological order.
func (s *LedgerService) MonthlySeries(ctx context.Context) []domain.MonthlyPoint {
	return analytics.MonthlySeries(s.transactions.Load(ctx), s.loc)
}

// CategoryBreakdown returns expense totals per category, largest first.
func (s *LedgerService) CategoryBreakdown(ctx context.Context) []domain.CategorySlice {
	return analytics.CategoryBreakdown(s.transactions.Load(ctx))
}

// Catalog returns the service and expense presets.
func (s *LedgerService) Catalog() domain.Catalog {
	return domain.DefaultCatalog()
}

func (s *LedgerService) build(in domain.NewTransaction) (domain.Transaction, error) {
	if !in.Kind.Valid() {
		return domain.Transaction{}, &domain.ErrValidation{Field: "type", Message: "must be INCOME or EXPENSE"}
	}
	if in.Amount == nil {
		return domain.Transaction{}, &domain.ErrValidation{Field: "amount", Message: "required"}
	}
	if in.Amount.IsNegative() {
		return domain.Transaction{}, &domain.ErrValidation{Field: "amount", Message: "must not be negative"}
	}

	category := in.Category
	if strings.TrimSpace(category) == "" {
		category = domain.DefaultCategory
	}

	clientName := strings.TrimSpace(in.ClientName)
	if in.Kind == domain.KindExpense {
		clientName = ""
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = category
		if in.Kind == domain.KindIncome {
			description = category + " - " + clientName
		}
	}

	now := s.now()
	return domain.Transaction{
		ID:          uuid.NewString(),
		Kind:        in.Kind,
		Amount:      *in.Amount,
		Category:    category,
		Description: description,
		ClientName:  clientName,
		OccurredAt:  now.UTC(),
		Timestamp:   now.UnixMilli(),
	}, nil
}
