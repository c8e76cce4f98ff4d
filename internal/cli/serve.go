package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dropscope/dropscope/internal/archive"
	"github.com/dropscope/dropscope/internal/config"
	"github.com/dropscope/dropscope/internal/enricher"
	"github.com/dropscope/dropscope/internal/events"
	"github.com/dropscope/dropscope/internal/handler"
	"github.com/dropscope/dropscope/internal/middleware"
	"github.com/dropscope/dropscope/internal/orchestrator"
	"github.com/dropscope/dropscope/internal/processor"
	"github.com/dropscope/dropscope/internal/reports"
	"github.com/dropscope/dropscope/internal/store"
	"github.com/dropscope/dropscope/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("http-port", "8080", "HTTP server port")
	serveCmd.Flags().String("metrics-addr", ":9095", "Prometheus metrics server address")
	serveCmd.Flags().String("task-store", "memory", "task store backend: memory | redis")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address (host:port)")
	serveCmd.Flags().String("report-store", "memory", "report store backend: memory | postgres")
	serveCmd.Flags().String("kafka-brokers", "", "comma-separated Kafka broker addresses; empty disables the status event sink")
	serveCmd.Flags().String("kafka-topic", events.DefaultTopic, "Kafka topic for status events")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")
	serveCmd.Flags().String("archive-base-url", "", "web archive base URL (default: web.archive.org)")
	serveCmd.Flags().Duration("archive-timeout", 30*time.Second, "per-call archive request timeout")
	serveCmd.Flags().Int("archive-max-retries", 2, "extra attempts on transient archive failures")
	serveCmd.Flags().String("openrouter-api-key", "", "OpenRouter API key; empty runs enrichment in degraded mode")
	serveCmd.Flags().String("openrouter-model", "", "OpenRouter model identifier")
	serveCmd.Flags().Duration("openrouter-timeout", 60*time.Second, "per-call LLM request timeout")
	serveCmd.Flags().Int("rate-limit", 0, "submissions allowed per client per window; 0 disables")
	serveCmd.Flags().Duration("rate-window", time.Minute, "rate limit window")

	bindFlag("http_port", serveCmd.Flags(), "http-port")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("task_store", serveCmd.Flags(), "task-store")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("report_store", serveCmd.Flags(), "report-store")
	bindFlag("kafka_brokers", serveCmd.Flags(), "kafka-brokers")
	bindFlag("kafka_topic", serveCmd.Flags(), "kafka-topic")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	bindFlag("archive_base_url", serveCmd.Flags(), "archive-base-url")
	bindFlag("archive_timeout", serveCmd.Flags(), "archive-timeout")
	bindFlag("archive_max_retries", serveCmd.Flags(), "archive-max-retries")
	bindFlag("openrouter_api_key", serveCmd.Flags(), "openrouter-api-key")
	bindFlag("openrouter_model", serveCmd.Flags(), "openrouter-model")
	bindFlag("openrouter_timeout", serveCmd.Flags(), "openrouter-timeout")
	bindFlag("rate_limit", serveCmd.Flags(), "rate-limit")
	bindFlag("rate_window", serveCmd.Flags(), "rate-window")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = viper.BindEnv("openrouter_api_key", "OPENROUTER_API_KEY")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, "dropscope")

	shutdownTracer, err := telemetry.InitTracer(context.Background(), "dropscope", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	// ── task store ────────────────────────────────────────────────────────────
	var taskStore store.TaskStore
	var rateLimiter store.RateLimiter
	switch cfg.TaskStore {
	case "", "memory":
		taskStore = store.NewMemory()
		logger.Warn("using in-memory task store, tasks do not survive a restart")
	case "redis":
		redisClient := store.NewClient(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		taskStore = store.NewRedis(redisClient)
		if cfg.RateLimit > 0 {
			rateLimiter = store.NewRateLimiter(redisClient, cfg.RateLimit, cfg.RateWindow)
		}
	default:
		return fmt.Errorf("unknown task_store %q (use memory or redis)", cfg.TaskStore)
	}

	// ── report store ──────────────────────────────────────────────────────────
	var reportStore reports.Store
	switch cfg.ReportStore {
	case "", "memory":
		reportStore = reports.NewMemoryStore()
	case "postgres":
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := reports.NewPool(initCtx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		reportStore = reports.NewPostgresStore(pool)
	default:
		return fmt.Errorf("unknown report_store %q (use memory or postgres)", cfg.ReportStore)
	}

	// ── status event sink ─────────────────────────────────────────────────────
	var sink orchestrator.Sink
	if cfg.KafkaBrokers != "" {
		kafkaSink := events.NewKafkaSink(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		defer func() { _ = kafkaSink.Close() }()
		sink = kafkaSink
	}

	// ── pipeline ──────────────────────────────────────────────────────────────
	source := archive.NewCDXClient(archive.Config{
		BaseURL:    cfg.ArchiveBaseURL,
		UserAgent:  cfg.ArchiveUserAgent,
		Timeout:    cfg.ArchiveTimeout,
		MaxRetries: cfg.ArchiveMaxRetries,
	}, logger)
	enrich := enricher.New(enricher.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		Model:   cfg.OpenRouterModel,
		BaseURL: cfg.OpenRouterBaseURL,
		Timeout: cfg.OpenRouterTimeout,
	}, logger)
	proc := processor.New(source, enrich, logger)
	publisher := orchestrator.NewPublisher(sink, logger)
	orch := orchestrator.New(taskStore, proc, publisher, logger)
	reportSvc := reports.NewService(reportStore, orch, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	rest := handler.NewREST(orch, reportSvc, logger)
	var extra []func(http.Handler) http.Handler
	if rateLimiter != nil {
		extra = append(extra, middleware.RateLimit(rateLimiter, logger))
	}
	router := handler.NewRouter(rest, logger, extra...)

	httpSrv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE streams stay open for the task's lifetime.
		IdleTimeout: 60 * time.Second,
	}

	// ── signal handling ───────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// ── Prometheus metrics ────────────────────────────────────────────────────
	telemetry.StartMetricsServer(runCtx, cfg.MetricsAddr, logger)

	go func() {
		logger.Info("dropscope HTTP starting", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("shutting down...")
	runCancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}

	// Let in-flight tasks land in a terminal state before exiting.
	logger.Info("waiting for in-flight tasks")
	orch.Wait()
	logger.Info("stopped")
	return nil
}
