package handler

import (
	"net/http"
	"time"

	"github.com/ivision/agency-books/internal/domain"
	"github.com/ivision/agency-books/internal/infra/notify"
	"github.com/ivision/agency-books/internal/infra/observability"
	"github.com/ivision/agency-books/internal/port"
	"github.com/ivision/agency-books/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// kvStore may be nil, in which case /healthz only reports the API itself.
func NewRouter(
	ledger *service.LedgerService,
	controller *service.RefreshController,
	notifications *notify.Sink,
	kvStore port.KeyValueStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(kvStore, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", catalogHandler(ledger))

		// Ledger
		r.Get("/transactions", listTransactionsHandler(ledger))
		r.Post("/transactions", createTransactionHandler(ledger, logger))
		r.Delete("/transactions", clearTransactionsHandler(ledger, logger))
		r.Delete("/transactions/{transactionId}", deleteTransactionHandler(ledger, logger))

		// Derived views
		r.Get("/dashboard", dashboardHandler(ledger))
		r.Get("/stats/totals", totalsHandler(ledger))
		r.Get("/stats/monthly", monthlyHandler(ledger))
		r.Get("/stats/categories", categoriesHandler(ledger))

		// Analysis
		r.Get("/analysis", analysisStatusHandler(controller))
		r.Post("/analysis/refresh", analysisRefreshHandler(controller, logger))

		// Notifications
		r.Get("/notifications", listNotificationsHandler(notifications))
		r.Delete("/notifications/{notificationId}", dismissNotificationHandler(notifications, logger))

		r.Get("/metrics/analysis", analysisMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(kvStore port.KeyValueStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "books-api", Status: "healthy", LastChecked: now},
		}

		if kvStore != nil {
			start := time.Now()
			err := kvStore.Ping(r.Context())
			status := "healthy"
			if err != nil {
				logger.Warn("kv store ping failed", zap.Error(err))
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name: "kv-store", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		httpStatus := http.StatusOK
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}

		writeJSON(w, httpStatus, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func analysisMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAnalysisSnapshot())
	}
}
