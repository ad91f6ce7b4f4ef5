// Package summarizer asks a Gemini model for a short French analysis of the ledger.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ivision/agency-books/internal/domain"
	"github.com/ivision/agency-books/internal/infra/observability"
	"github.com/ivision/agency-books/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"

	serviceName = "gemini"
)

var tracer = otel.Tracer("summarizer")

var errEmptyResponse = errors.New("empty response from model")

// ContentGenerator is the subset of the genai models API used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds summarizer parameters.
type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	Resilience resilience.Config
}

// Gemini implements port.Summarizer.
type Gemini struct {
	gen      ContentGenerator
	model    string
	timeout  time.Duration
	retry    resilience.Config
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewGemini builds a client from cfg. Without an API key the summarizer is
// created anyway and every call fails fast with domain.ErrSummarizerUnavailable.
func NewGemini(ctx context.Context, cfg Config, metrics *observability.Metrics, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, analysis disabled")
		return New(nil, cfg, metrics, logger), nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return New(client.Models, cfg, metrics, logger), nil
}

// New wraps an existing generator. A nil generator disables the summarizer.
func New(gen ContentGenerator, cfg Config, metrics *observability.Metrics, logger *zap.Logger) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Gemini{
		gen:      gen,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		retry:    cfg.Resilience,
		cb:       resilience.NewCircuitBreaker(serviceName, logger),
		bulkhead: resilience.NewBulkhead(cfg.Resilience.MaxConcurrency),
		metrics:  metrics,
		logger:   logger,
	}
}

// Enabled reports whether an API key was configured.
func (g *Gemini) Enabled() bool {
	return g.gen != nil
}

// Summarize returns the model's analysis of txs.
func (g *Gemini) Summarize(ctx context.Context, txs []domain.Transaction) (string, error) {
	ctx, span := tracer.Start(ctx, "Gemini.Summarize")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", g.model),
		attribute.Int("ledger.count", len(txs)),
	)

	if g.gen == nil {
		g.metrics.IncrSummarizerCall("error")
		return "", domain.ErrSummarizerUnavailable
	}

	start := time.Now()
	defer func() {
		g.metrics.RecordRequestDuration("summarize", time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.bulkhead.Acquire(ctx); err != nil {
		return "", g.fail(span, &domain.ErrTimeout{Operation: "summarize"})
	}
	defer g.bulkhead.Release()

	prompt := BuildPrompt(txs)

	result, err := g.cb.Execute(func() (any, error) {
		var text string
		innerErr := resilience.RetryWithBackoff(ctx, g.retry, func() error {
			resp, err := g.gen.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
			if err != nil {
				return err
			}
			if u := resp.UsageMetadata; u != nil {
				g.metrics.RecordTokens(int(u.PromptTokenCount), int(u.CandidatesTokenCount))
			}
			text = strings.TrimSpace(resp.Text())
			if text == "" {
				return resilience.Permanent(errEmptyResponse)
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return text, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return "", g.fail(span, &domain.ErrCircuitOpen{Service: serviceName})
		case errors.Is(err, context.DeadlineExceeded):
			return "", g.fail(span, &domain.ErrTimeout{Operation: "summarize"})
		default:
			return "", g.fail(span, &domain.ErrExternalService{
				Service: serviceName,
				Err:     fmt.Errorf("%w: %v", domain.ErrSummarizerUnavailable, err),
			})
		}
	}

	g.metrics.IncrSummarizerCall("success")
	text := result.(string)
	g.logger.Debug("summary generated",
		zap.Int("chars", len(text)),
		zap.Duration("latency", time.Since(start)),
	)
	return text, nil
}

func (g *Gemini) fail(span trace.Span, err error) error {
	g.metrics.IncrSummarizerCall("error")
	g.metrics.IncrExternalError(serviceName)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	g.logger.Warn("summarizer call failed", zap.Error(err))
	return err
}
