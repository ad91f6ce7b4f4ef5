// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/ivision/agency-books/internal/domain"
)

// KeyValueStore is the local persistence backend. Values are opaque strings.
type KeyValueStore interface {
	// Get returns ok=false when the key has never been written or was deleted.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Summarizer produces a short natural-language analysis of a ledger.
type Summarizer interface {
	Summarize(ctx context.Context, transactions []domain.Transaction) (string, error)
}

// Notifier publishes transient messages for the operator.
type Notifier interface {
	Notify(message string, severity domain.Severity) domain.Notification
}
