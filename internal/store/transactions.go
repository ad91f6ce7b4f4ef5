// Package store keeps the ledger and the last analysis in the local
// key-value backend. It does no validation; callers hand it finished entries.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ivision/agency-books/internal/domain"
	"github.com/ivision/agency-books/internal/infra/observability"
	"github.com/ivision/agency-books/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TransactionsKey is the key holding the JSON-encoded ledger.
const TransactionsKey = "ivision_transactions_v1"

var tracer = otel.Tracer("store")

var errCorruptLedger = errors.New("ledger corrupt")

// TransactionStore is the canonical, persisted list of transactions,
// newest first.
type TransactionStore struct {
	kv       port.KeyValueStore
	analysis *AnalysisCache
	metrics  *observability.Metrics
	logger   *zap.Logger

	// mu serializes read-modify-write cycles on the persisted list.
	mu sync.Mutex
}

// NewTransactionStore wires the ledger to its backend. ClearAll also wipes
// analysis, so the two always live in the same backend.
func NewTransactionStore(kv port.KeyValueStore, analysis *AnalysisCache, metrics *observability.Metrics, logger *zap.Logger) *TransactionStore {
	return &TransactionStore{
		kv:       kv,
		analysis: analysis,
		metrics:  metrics,
		logger:   logger,
	}
}

// Load returns the persisted list. Absent, unreadable or corrupt data all
// yield an empty list; problems are logged, never returned.
func (s *TransactionStore) Load(ctx context.Context) []domain.Transaction {
	ctx, span := tracer.Start(ctx, "TransactionStore.Load")
	defer span.End()

	list, err := s.read(ctx)
	if err != nil {
		s.logger.Warn("ledger unreadable, using empty list", zap.Error(err))
		return []domain.Transaction{}
	}
	span.SetAttributes(attribute.Int("ledger.count", len(list)))
	return list
}

// Add prepends tx and persists the whole list.
func (s *TransactionStore) Add(ctx context.Context, tx domain.Transaction) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionStore.Add")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readForWrite(ctx)
	if err != nil {
		return nil, err
	}

	updated := make([]domain.Transaction, 0, len(current)+1)
	updated = append(updated, tx)
	updated = append(updated, current...)

	if err := s.write(ctx, updated); err != nil {
		return nil, err
	}

	s.metrics.IncrStoreMutation("add")
	s.logger.Debug("transaction added",
		zap.String("id", tx.ID),
		zap.String("type", string(tx.Kind)),
		zap.Int("count", len(updated)),
	)
	return clone(updated), nil
}

// Remove drops the transaction with the given id. An unknown id is a no-op.
func (s *TransactionStore) Remove(ctx context.Context, id string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionStore.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readForWrite(ctx)
	if err != nil {
		return nil, err
	}

	updated := make([]domain.Transaction, 0, len(current))
	for _, tx := range current {
		if tx.ID != id {
			updated = append(updated, tx)
		}
	}

	if len(updated) == len(current) {
		s.logger.Debug("remove: unknown transaction id", zap.String("id", id))
		return updated, nil
	}

	if err := s.write(ctx, updated); err != nil {
		return nil, err
	}

	s.metrics.IncrStoreMutation("remove")
	s.logger.Debug("transaction removed", zap.String("id", id), zap.Int("count", len(updated)))
	return clone(updated), nil
}

// ClearAll empties the ledger and discards the stored analysis.
func (s *TransactionStore) ClearAll(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "TransactionStore.ClearAll")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, TransactionsKey); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	if s.analysis != nil {
		if err := s.analysis.ClearSummary(ctx); err != nil {
			return err
		}
	}

	s.metrics.IncrStoreMutation("clear")
	s.logger.Info("ledger cleared")
	return nil
}

func (s *TransactionStore) read(ctx context.Context) ([]domain.Transaction, error) {
	raw, ok, err := s.kv.Get(ctx, TransactionsKey)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if !ok || raw == "" {
		return []domain.Transaction{}, nil
	}

	var list []domain.Transaction
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptLedger, err)
	}
	if list == nil {
		list = []domain.Transaction{}
	}
	return list, nil
}

// readForWrite returns backend errors and treats corrupt JSON as an empty ledger.
func (s *TransactionStore) readForWrite(ctx context.Context) ([]domain.Transaction, error) {
	list, err := s.read(ctx)
	if errors.Is(err, errCorruptLedger) {
		s.logger.Warn("ledger corrupt, starting from empty list", zap.Error(err))
		return []domain.Transaction{}, nil
	}
	return list, err
}

func (s *TransactionStore) write(ctx context.Context, list []domain.Transaction) error {
	body, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.kv.Set(ctx, TransactionsKey, string(body)); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

func clone(list []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(list))
	copy(out, list)
	return out
}
