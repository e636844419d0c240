package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	relayhttp "github.com/relayops/relay/internal/adapter/http"
	relaynats "github.com/relayops/relay/internal/adapter/nats"
	"github.com/relayops/relay/internal/adapter/natskv"
	"github.com/relayops/relay/internal/adapter/otel"
	"github.com/relayops/relay/internal/adapter/postgres"
	"github.com/relayops/relay/internal/adapter/ristretto"
	"github.com/relayops/relay/internal/adapter/tiered"
	"github.com/relayops/relay/internal/adapter/ws"
	"github.com/relayops/relay/internal/config"
	"github.com/relayops/relay/internal/event"
	healthmon "github.com/relayops/relay/internal/health"
	"github.com/relayops/relay/internal/logger"
	"github.com/relayops/relay/internal/middleware"
	"github.com/relayops/relay/internal/port/auditstore"
	"github.com/relayops/relay/internal/port/cache"
	"github.com/relayops/relay/internal/port/provider"
	"github.com/relayops/relay/internal/resilience"
	routingeng "github.com/relayops/relay/internal/routing"
	"github.com/relayops/relay/internal/service"

	"github.com/relayops/relay/internal/domain/routing"
)

const version = "0.1.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer func() { logCloser.Close() }()

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"strategy", cfg.Routing.Strategy,
		"providers", len(cfg.Providers),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownTelemetry, err := otel.Init(ctx, cfg.Telemetry, cfg.Logging.Service, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	// --- Audit store (optional) ---
	var audit auditstore.Store
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		audit = postgres.NewStore(pool)
		log.Info("audit store enabled")
	}

	// --- NATS (optional) ---
	var queue *relaynats.Queue
	if cfg.NATS.URL != "" {
		queue, err = relaynats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
	}

	// --- Decision cache ---
	l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()

	var decisionCache cache.Cache = l1
	if queue != nil {
		kv, err := queue.KeyValue(ctx, "relay-decisions", cfg.Cache.DecisionTTL)
		if err != nil {
			return fmt.Errorf("decision kv: %w", err)
		}
		decisionCache = tiered.New(l1, natskv.New(kv), cfg.Cache.DecisionTTL)
	}

	// --- Core ---
	reg := provider.NewRegistry(cfg.Defaults.Provider)
	if err := buildProviders(reg, cfg.Providers, queue, log); err != nil {
		return fmt.Errorf("providers: %w", err)
	}

	monitor := healthmon.NewMonitor(healthmon.Options{
		WindowSize:       cfg.Health.WindowSize,
		FailureThreshold: cfg.Health.FailureThreshold,
		CoolDown:         cfg.Health.CoolDown,
	}, log)

	engine := routingeng.NewEngine(reg, monitor, routingeng.Options{
		Strategy:       routing.Strategy(cfg.Routing.Strategy),
		Weights:        cfg.Routing.Weights,
		MaxChainLength: cfg.Routing.MaxChainLength,
		Priority:       cfg.Routing.Priority,
	}, log)

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	bus := event.NewBus()
	orch := service.New(reg, monitor, engine, bus, audit, decisionCache, metrics, service.Options{
		DefaultModel:    cfg.Defaults.Model,
		SpawnTimeout:    cfg.Defaults.SpawnTimeout,
		ExecTimeout:     cfg.Defaults.ExecTimeout,
		FallbackEnabled: cfg.Defaults.Fallback,
		Retry: resilience.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Base:        cfg.Retry.BaseDelay,
			Cap:         cfg.Retry.MaxDelay,
		},
		HealthInterval: 15 * time.Second,
	}, log)
	orch.Start(ctx)

	hub := ws.NewHub()
	hub.Relay(ctx, bus)

	// --- HTTP ---
	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(relayhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(relayhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(relayhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(limiter.Handler)
	r.Use(middleware.Auth(cfg.Auth.TokenHash, cfg.Auth.Enabled))

	relayhttp.MountRoutes(r, relayhttp.NewHandlers(orch), hub)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // exec calls can run long
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
