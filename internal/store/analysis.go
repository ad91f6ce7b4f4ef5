package store

import (
	"context"
	"fmt"

	"github.com/ivision/agency-books/internal/infra/observability"
	"github.com/ivision/agency-books/internal/port"

	"go.uber.org/zap"
)

// AnalysisKey is the key holding the last successful summary text.
const AnalysisKey = "ivision_analysis_v1"

// AnalysisCache persists the most recent summary.
type AnalysisCache struct {
	kv      port.KeyValueStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAnalysisCache creates a cache over the given backend.
func NewAnalysisCache(kv port.KeyValueStore, metrics *observability.Metrics, logger *zap.Logger) *AnalysisCache {
	return &AnalysisCache{kv: kv, metrics: metrics, logger: logger}
}

// LoadStoredSummary returns the stored text. An empty string counts as absent.
func (c *AnalysisCache) LoadStoredSummary(ctx context.Context) (string, bool) {
	ctx, span := tracer.Start(ctx, "AnalysisCache.LoadStoredSummary")
	defer span.End()

	text, ok, err := c.kv.Get(ctx, AnalysisKey)
	if err != nil {
		c.logger.Warn("stored analysis unreadable", zap.Error(err))
		c.metrics.IncrCacheMiss("analysis")
		return "", false
	}
	if !ok || text == "" {
		c.metrics.IncrCacheMiss("analysis")
		return "", false
	}

	c.metrics.IncrCacheHit("analysis")
	return text, true
}

// SaveSummary overwrites the stored text.
func (c *AnalysisCache) SaveSummary(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "AnalysisCache.SaveSummary")
	defer span.End()

	if err := c.kv.Set(ctx, AnalysisKey, text); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// ClearSummary removes the stored text.
func (c *AnalysisCache) ClearSummary(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "AnalysisCache.ClearSummary")
	defer span.End()

	if err := c.kv.Delete(ctx, AnalysisKey); err != nil {
		return fmt.Errorf("clear analysis: %w", err)
	}
	return nil
}
