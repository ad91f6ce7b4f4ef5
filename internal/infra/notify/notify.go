// Package notify holds short-lived operator notifications in a TTL cache.
package notify

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/ivision/agency-books/internal/domain"
	"github.com/ivision/agency-books/internal/infra/cache"
	"github.com/ivision/agency-books/internal/infra/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

type notice struct {
	n   domain.Notification
	seq uint64
}

// Sink publishes notifications that expire on their own.
type Sink struct {
	items   *cache.InMemory[notice]
	seq     atomic.Uint64
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewSink creates a sink whose notifications live for ttl.
func NewSink(ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Sink {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sink{
		items:   cache.New[notice](ttl),
		metrics: metrics,
		logger:  logger,
	}
}

// Notify publishes a message and returns the stored notification.
func (s *Sink) Notify(message string, severity domain.Severity) domain.Notification {
	now := time.Now()
	n := domain.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: now,
		ExpiresAt: now.Add(s.items.TTL()),
	}
	s.items.Set(n.ID, notice{n: n, seq: s.seq.Add(1)})

	s.metrics.IncrNotification(severity)
	s.logger.Info("notification",
		zap.String("id", n.ID),
		zap.String("severity", string(severity)),
		zap.String("message", message),
	)
	return n
}

// Active lists the notifications that have not expired, newest first.
func (s *Sink) Active() []domain.Notification {
	items := s.items.Items()
	sort.Slice(items, func(i, j int) bool {
		return items[i].Value.seq > items[j].Value.seq
	})

	out := make([]domain.Notification, len(items))
	for i, it := range items {
		out[i] = it.Value.n
	}
	return out
}

// Dismiss removes a notification before it expires. Unknown or already
// expired ids return *domain.ErrNotFound.
func (s *Sink) Dismiss(id string) error {
	if _, ok := s.items.Get(id); !ok {
		return &domain.ErrNotFound{Resource: "notification", ID: id}
	}
	s.items.Delete(id)
	s.logger.Debug("notification dismissed", zap.String("id", id))
	return nil
}

// Close stops the expiry sweeper.
func (s *Sink) Close() {
	s.items.Close()
}
