package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivision/agency-books/internal/domain"
	"github.com/ivision/agency-books/internal/infra/observability"
	"github.com/ivision/agency-books/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// Operator-facing messages.
const (
	MsgAnalysisAvailable = "Nouvelle analyse comptable disponible."
	MsgAnalysisUpdated   = "Analyse mise à jour avec succès."
	MsgAnalysisFailed    = "Impossible de générer l'analyse."
)

// errSuperseded is returned by a refresh whose ledger was cleared while the
// summarizer was running. Its result is discarded.
var errSuperseded = fmt.Errorf("%w: ledger cleared during refresh", domain.ErrNothingToAnalyze)

// RefreshController decides when the summary is regenerated and writes it
// to the analysis cache. Triggers may overlap; the last write wins, except
// that no refresh started before a Reset is ever saved after it.
type RefreshController struct {
	transactions port.TransactionRepository
	analysis     port.AnalysisRepository
	summarizer   port.Summarizer
	notifier     port.Notifier
	metrics      *observability.Metrics
	logger       *zap.Logger

	wg  sync.WaitGroup
	seq atomic.Uint64

	// genMu serializes Reset against the generation check and save.
	genMu      sync.Mutex
	generation uint64

	mu              sync.Mutex
	inFlight        int
	lastError       string
	lastRefreshedAt *time.Time
}

// NewRefreshController creates a controller. No refresh happens until Start
// or a mutation hook is called.
func NewRefreshController(
	transactions port.TransactionRepository,
	analysis port.AnalysisRepository,
	summarizer port.Summarizer,
	notifier port.Notifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RefreshController {
	return &RefreshController{
		transactions: transactions,
		analysis:     analysis,
		summarizer:   summarizer,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger,
	}
}

// Start surfaces a stored summary if there is one. Otherwise, when the
// ledger is not empty, it schedules a single silent refresh.
func (c *RefreshController) Start(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "RefreshController.Start")
	defer span.End()

	if _, ok := c.analysis.LoadStoredSummary(ctx); ok {
		c.logger.Info("stored analysis found, skipping initial refresh")
		return
	}

	list := c.transactions.Load(ctx)
	span.SetAttributes(attribute.Int("ledger.count", len(list)))
	if len(list) == 0 {
		c.logger.Info("ledger empty, no initial analysis")
		return
	}

	c.spawn(ctx, domain.TriggerInitial, list, "")
}

// Reset clears the ledger and the stored analysis. Refreshes still in
// flight finish but their summaries are discarded.
func (c *RefreshController) Reset(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "RefreshController.Reset")
	defer span.End()

	c.genMu.Lock()
	defer c.genMu.Unlock()

	c.generation++
	if err := c.transactions.ClearAll(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	c.logger.Info("ledger reset", zap.Uint64("generation", c.generation))
	return nil
}

// OnTransactionAdded refreshes with the post-add list and announces the
// new summary on success. Failures are only logged.
func (c *RefreshController) OnTransactionAdded(ctx context.Context, list []domain.Transaction) {
	c.spawn(ctx, domain.TriggerAdd, list, MsgAnalysisAvailable)
}

// OnTransactionRemoved silently refreshes with the post-delete list.
// An empty list is left alone.
func (c *RefreshController) OnTransactionRemoved(ctx context.Context, list []domain.Transaction) {
	if len(list) == 0 {
		c.logger.Debug("ledger empty after delete, refresh skipped")
		return
	}
	c.spawn(ctx, domain.TriggerDelete, list, "")
}

// RequestRefresh regenerates the summary synchronously from the current
// ledger. Both outcomes are notified; the error is also returned.
func (c *RefreshController) RequestRefresh(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "RefreshController.RequestRefresh")
	defer span.End()

	gen := c.currentGeneration()
	list := c.transactions.Load(ctx)
	if len(list) == 0 {
		return "", domain.ErrNothingToAnalyze
	}

	text, err := c.refresh(ctx, domain.TriggerManual, list, gen)
	if err != nil {
		if !errors.Is(err, errSuperseded) {
			c.notifier.Notify(MsgAnalysisFailed, domain.SeverityError)
		}
		return "", err
	}

	c.notifier.Notify(MsgAnalysisUpdated, domain.SeverityAI)
	return text, nil
}

// Status reports the stored summary and the refresh state.
func (c *RefreshController) Status(ctx context.Context) domain.AnalysisStatus {
	summary, ok := c.analysis.LoadStoredSummary(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	st := domain.AnalysisStatus{
		Summary:    summary,
		HasSummary: ok,
		Refreshing: c.inFlight > 0,
		InFlight:   c.inFlight,
		LastError:  c.lastError,
	}
	if c.lastRefreshedAt != nil {
		at := *c.lastRefreshedAt
		st.LastRefreshedAt = &at
	}
	return st
}

// Wait blocks until every background refresh has finished.
func (c *RefreshController) Wait() {
	c.wg.Wait()
}

// spawn runs a refresh in the background, detached from ctx cancellation.
func (c *RefreshController) spawn(ctx context.Context, trigger domain.Trigger, list []domain.Transaction, successMsg string) {
	bg := context.WithoutCancel(ctx)
	snapshot := append([]domain.Transaction(nil), list...)
	gen := c.currentGeneration()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if _, err := c.refresh(bg, trigger, snapshot, gen); err != nil {
			return
		}
		if successMsg != "" {
			c.notifier.Notify(successMsg, domain.SeverityAI)
		}
	}()
}

// refresh calls the summarizer exactly once and stores the result on success,
// unless the ledger was reset after gen was taken.
func (c *RefreshController) refresh(ctx context.Context, trigger domain.Trigger, list []domain.Transaction, gen uint64) (string, error) {
	ctx, span := tracer.Start(ctx, "RefreshController.refresh")
	defer span.End()

	seq := c.seq.Add(1)
	span.SetAttributes(
		attribute.String("refresh.trigger", string(trigger)),
		attribute.Int64("refresh.seq", int64(seq)),
		attribute.Int("ledger.count", len(list)),
	)
	log := c.logger.With(
		zap.String("trigger", string(trigger)),
		zap.Uint64("refresh_seq", seq),
	)

	c.begin()
	start := time.Now()

	text, err := c.summarizer.Summarize(ctx, list)
	if err == nil {
		err = c.save(ctx, text, gen)
	}

	c.end(err)
	c.metrics.RecordRequestDuration("refresh_"+string(trigger), time.Since(start))

	if errors.Is(err, errSuperseded) {
		c.metrics.IncrRefresh(trigger, "discarded")
		log.Info("analysis discarded, ledger was reset")
		return "", err
	}
	if err != nil {
		c.metrics.IncrRefresh(trigger, "error")
		span.RecordError(err)
		log.Warn("analysis refresh failed", zap.Error(err))
		return "", err
	}

	c.metrics.IncrRefresh(trigger, "success")
	log.Info("analysis refreshed", zap.Duration("latency", time.Since(start)))
	return text, nil
}

func (c *RefreshController) save(ctx context.Context, text string, gen uint64) error {
	c.genMu.Lock()
	defer c.genMu.Unlock()

	if c.generation != gen {
		return errSuperseded
	}
	if err := c.analysis.SaveSummary(ctx, text); err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}
	return nil
}

func (c *RefreshController) currentGeneration() uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.generation
}

func (c *RefreshController) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
}

func (c *RefreshController) end(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight--
	if errors.Is(err, errSuperseded) {
		return
	}
	if err != nil {
		c.lastError = err.Error()
		return
	}
	now := time.Now()
	c.lastError = ""
	c.lastRefreshedAt = &now
}
