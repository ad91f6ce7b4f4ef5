package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ivision/agency-books/internal/config"
	"github.com/ivision/agency-books/internal/handler"
	"github.com/ivision/agency-books/internal/infra/kv"
	"github.com/ivision/agency-books/internal/infra/notify"
	"github.com/ivision/agency-books/internal/infra/observability"
	"github.com/ivision/agency-books/internal/infra/resilience"
	"github.com/ivision/agency-books/internal/infra/summarizer"
	"github.com/ivision/agency-books/internal/port"
	"github.com/ivision/agency-books/internal/service"
	"github.com/ivision/agency-books/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_backend", cfg.DataBackend),
		zap.String("gemini_model", cfg.GeminiModel),
		zap.Bool("gemini_key_set", cfg.GeminiAPIKey != ""),
		zap.Duration("summarizer_timeout", cfg.SummarizerTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("notification_ttl", cfg.NotificationTTL),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer := observability.ShutdownFunc(observability.NoopShutdown)
	if cfg.TracingEnabled {
		var err error
		shutdownTracer, err = observability.InitTracer(cfg.OTLPEndpoint, "agency-books")
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Persistence ---
	var backend port.KeyValueStore
	switch cfg.DataBackend {
	case "memory":
		logger.Warn("using in-memory backend, data is lost on exit")
		backend = kv.NewMemory()
	default:
		sqliteStore, err := kv.OpenSQLite(ctx, cfg.SQLiteDBPath, logger)
		if err != nil {
			return fmt.Errorf("open sqlite store %s: %w", cfg.SQLiteDBPath, err)
		}
		defer sqliteStore.Close()
		backend = sqliteStore
	}

	analysis := store.NewAnalysisCache(backend, metrics, logger)
	transactions := store.NewTransactionStore(backend, analysis, metrics, logger)

	// --- Summarizer ---
	gemini, err := summarizer.NewGemini(ctx, summarizer.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.SummarizerTimeout,
		Resilience: resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
	}, metrics, logger)
	if err != nil {
		return fmt.Errorf("create summarizer: %w", err)
	}

	// --- Notifications ---
	sink := notify.NewSink(cfg.NotificationTTL, metrics, logger)
	defer sink.Close()

	// --- Services ---
	controller := service.NewRefreshController(transactions, analysis, gemini, sink, metrics, logger)
	ledger := service.NewLedgerService(transactions, controller, sink, cfg.Location(), metrics, logger)

	controller.Start(ctx)

	// --- Router ---
	router := handler.NewRouter(ledger, controller, sink, backend, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.SummarizerTimeout + cfg.HTTPTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced shutdown: %w", err)
		}
		controller.Wait()
		return nil
	})

	return g.Wait()
}
