package notify_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ivision/agency-books/internal/domain"
	"github.com/ivision/agency-books/internal/infra/notify"
	"github.com/ivision/agency-books/internal/infra/observability"

	"go.uber.org/zap"
)

func TestSink_NotifyAndActive(t *testing.T) {
	s := notify.NewSink(time.Minute, observability.NewMetrics(), zap.NewNop())
	defer s.Close()

	first := s.Notify("Transaction ajoutée", domain.SeveritySuccess)
	second := s.Notify("Nouvelle analyse comptable disponible.", domain.SeverityAI)

	active := s.Active()
	if len(active) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(active))
	}
	if active[0].ID != second.ID || active[1].ID != first.ID {
		t.Errorf("expected newest first, got %s then %s", active[0].Message, active[1].Message)
	}
	if !second.ExpiresAt.After(second.CreatedAt) {
		t.Errorf("expected expiry after creation")
	}
}

func TestSink_Expires(t *testing.T) {
	s := notify.NewSink(50*time.Millisecond, observability.NewMetrics(), zap.NewNop())
	defer s.Close()

	s.Notify("éphémère", domain.SeverityInfo)
	time.Sleep(100 * time.Millisecond)

	if got := len(s.Active()); got != 0 {
		t.Errorf("expected notification to expire, got %d active", got)
	}
}

func TestSink_Dismiss(t *testing.T) {
	s := notify.NewSink(time.Minute, observability.NewMetrics(), zap.NewNop())
	defer s.Close()

	n := s.Notify("à fermer", domain.SeverityError)
	if err := s.Dismiss(n.ID); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}

	if got := len(s.Active()); got != 0 {
		t.Errorf("expected no active notifications, got %d", got)
	}
}

func TestSink_DismissUnknown(t *testing.T) {
	s := notify.NewSink(50*time.Millisecond, observability.NewMetrics(), zap.NewNop())
	defer s.Close()

	n := s.Notify("déjà partie", domain.SeverityInfo)
	time.Sleep(100 * time.Millisecond)

	tests := []struct {
		name string
		id   string
	}{
		{"never issued", "unknown"},
		{"expired", n.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Dismiss(tt.id)

			var notFound *domain.ErrNotFound
			if !errors.As(err, &notFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if notFound.Resource != "notification" || notFound.ID != tt.id {
				t.Errorf("unexpected error %+v", notFound)
			}
		})
	}
}

func TestSink_DismissTwice(t *testing.T) {
	s := notify.NewSink(time.Minute, observability.NewMetrics(), zap.NewNop())
	defer s.Close()

	n := s.Notify("une fois", domain.SeveritySuccess)
	if err := s.Dismiss(n.ID); err != nil {
		t.Fatalf("first Dismiss: %v", err)
	}

	var notFound *domain.ErrNotFound
	if err := s.Dismiss(n.ID); !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound on second dismiss, got %v", err)
	}
}

func TestSink_DefaultTTL(t *testing.T) {
	s := notify.NewSink(0, observability.NewMetrics(), zap.NewNop())
	defer s.Close()

	n := s.Notify("défaut", domain.SeverityInfo)
	if got := n.ExpiresAt.Sub(n.CreatedAt); got != notify.DefaultTTL {
		t.Errorf("expected TTL %s, got %s", notify.DefaultTTL, got)
	}
}
