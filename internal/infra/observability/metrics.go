package observability

import (
	"time"

	"github.com/ivision/agency-books/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	summarizerCalls *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	storeMutations  *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "books_request_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "books_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "books_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "books_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "books_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		summarizerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "books_summarizer_calls_total",
				Help: "Total summarizer calls by outcome.",
			},
			[]string{"status"},
		),
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "books_analysis_refreshes_total",
				Help: "Analysis refreshes by trigger and outcome.",
			},
			[]string{"trigger", "outcome"},
		),
		storeMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "books_store_mutations_total",
				Help: "Transaction store mutations by operation.",
			},
			[]string{"op"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "books_notifications_total",
				Help: "Notifications published by severity.",
			},
			[]string{"severity"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrSummarizerCall counts one summarizer call with status "success" or "error".
func (m *Metrics) IncrSummarizerCall(status string) {
	m.summarizerCalls.WithLabelValues(status).Inc()
}

// IncrRefresh counts one refresh attempt for a trigger.
func (m *Metrics) IncrRefresh(trigger domain.Trigger, outcome string) {
	m.refreshes.WithLabelValues(string(trigger), outcome).Inc()
}

// IncrStoreMutation counts add/remove/clear operations on the ledger.
func (m *Metrics) IncrStoreMutation(op string) {
	m.storeMutations.WithLabelValues(op).Inc()
}

// IncrNotification counts a published notification.
func (m *Metrics) IncrNotification(severity domain.Severity) {
	m.notifications.WithLabelValues(string(severity)).Inc()
}

var (
	snapshotTriggers = []domain.Trigger{domain.TriggerInitial, domain.TriggerAdd, domain.TriggerDelete, domain.TriggerManual}
	snapshotOps      = []string{"add", "remove", "clear"}
	snapshotSevs     = []domain.Severity{domain.SeveritySuccess, domain.SeverityError, domain.SeverityInfo, domain.SeverityAI}
)

// GetAnalysisSnapshot returns a snapshot of analysis-related metrics suitable
// for the GET /v1/metrics/analysis endpoint.
func (m *Metrics) GetAnalysisSnapshot() *domain.AnalysisMetrics {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	success := getCounterValue(m.summarizerCalls, "success")
	failed := getCounterValue(m.summarizerCalls, "error")
	total := success + failed

	avgTokens := float64(0)
	errorRate := float64(0)
	if total > 0 {
		avgTokens = (promptTokens + completionTokens) / total
		errorRate = failed / total
	}

	refreshes := make(map[string]float64, len(snapshotTriggers))
	for _, tr := range snapshotTriggers {
		refreshes[string(tr)] = getCounterValue(m.refreshes, string(tr), "success") +
			getCounterValue(m.refreshes, string(tr), "error") +
			getCounterValue(m.refreshes, string(tr), "discarded")
	}

	mutations := make(map[string]float64, len(snapshotOps))
	for _, op := range snapshotOps {
		mutations[op] = getCounterValue(m.storeMutations, op)
	}

	notifications := float64(0)
	for _, sev := range snapshotSevs {
		notifications += getCounterValue(m.notifications, string(sev))
	}

	return &domain.AnalysisMetrics{
		SummarizerCalls:     int64(total),
		SummarizerErrors:    int64(failed),
		ErrorRate:           errorRate,
		AvgTokensPerRequest: avgTokens,
		RefreshesByTrigger:  refreshes,
		StoreMutations:      mutations,
		Notifications:       notifications,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
