package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cbhttp "github.com/canban-ai/canban/internal/adapter/http"
	cbnats "github.com/canban-ai/canban/internal/adapter/nats"
	"github.com/canban-ai/canban/internal/adapter/openai"
	"github.com/canban-ai/canban/internal/adapter/otel"
	"github.com/canban-ai/canban/internal/adapter/postgres"
	"github.com/canban-ai/canban/internal/adapter/ristretto"
	"github.com/canban-ai/canban/internal/adapter/supabase"
	"github.com/canban-ai/canban/internal/config"
	"github.com/canban-ai/canban/internal/logger"
	"github.com/canban-ai/canban/internal/middleware"
	"github.com/canban-ai/canban/internal/port/datastore"
	"github.com/canban-ai/canban/internal/port/messagequeue"
	"github.com/canban-ai/canban/internal/resilience"
	"github.com/canban-ai/canban/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"datastore", cfg.Datastore.Driver,
		"model", cfg.OpenAI.Model,
		"nats", cfg.NATS.Enabled,
		"telemetry", cfg.Telemetry.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	var metrics *otel.Metrics
	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry.Endpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("otel shutdown", "error", err)
			}
		}()

		metrics, err = otel.NewMetrics()
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
		slog.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint)
	}

	// --- Datastore ---
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	var store datastore.Store
	switch cfg.Datastore.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Datastore.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		slog.Info("postgres connected")
	case "supabase":
		client := supabase.NewClient(cfg.Datastore.SupabaseURL, cfg.Datastore.SupabaseKey)
		client.SetBreaker(breaker)
		store = client
		slog.Info("supabase client ready", "url", cfg.Datastore.SupabaseURL)
	default:
		return fmt.Errorf("unknown datastore driver %q", cfg.Datastore.Driver)
	}

	// --- Message queue (optional) ---
	var queue messagequeue.Queue
	if cfg.NATS.Enabled {
		q, err := cbnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Close() }()
		queue = q
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	// --- LLM gateway ---
	llm := openai.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Timeout)
	llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	handlers := cbhttp.NewHandlers(
		service.NewBoardService(store, queue),
		service.NewCardService(store, queue),
		service.NewAIService(store, llm, queue, cfg.OpenAI.Model, metrics),
		service.NewSettingsService(),
	)

	// --- Idempotency cache ---
	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()
	idem := middleware.Idempotency(cache, cfg.Cache.IdempotencyTTL)

	// --- Rate limiting ---
	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(cbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cbhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(cbhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(limiter.Handler)
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}

	cbhttp.MountRoutes(r, handlers, idem)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
