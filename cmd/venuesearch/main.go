package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mandapcloud/venuesearch/internal/config"
	dbRedis "github.com/mandapcloud/venuesearch/internal/db/redis"
	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
	logpkg "github.com/mandapcloud/venuesearch/internal/logger"
	"github.com/mandapcloud/venuesearch/internal/metrics"
	venuerepo "github.com/mandapcloud/venuesearch/internal/repository/venue"
	chiTransport "github.com/mandapcloud/venuesearch/internal/transport/chi"
	healthuc "github.com/mandapcloud/venuesearch/internal/usecase/health"
	reindexuc "github.com/mandapcloud/venuesearch/internal/usecase/reindex"
	searchuc "github.com/mandapcloud/venuesearch/internal/usecase/search"
	"github.com/mandapcloud/venuesearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting venuesearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("engine_configured", cfg.EngineEnabled()),
		zap.Bool("broker_configured", cfg.BrokerEnabled()),
	)

	ctx := context.Background()

	// PostgreSQL is the source of truth and the only mandatory dependency.
	pool, err := venuerepo.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	venues := venuerepo.New(pool)
	if err := venues.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// The engine and broker are optional capabilities: absent configuration
	// yields a nil client, and every consumer has a defined nil branch.
	// Pass nil interfaces (not typed nil pointers!) when unconfigured.
	// Go gotcha: (*dbRedis.Engine)(nil) wrapped in an interface != nil.
	var engineStore *dbRedis.Engine
	if cfg.EngineEnabled() {
		engineStore, err = dbRedis.NewEngine(dbRedis.Config{
			Addrs:    cfg.Engine.Addrs,
			Password: cfg.Engine.Password,
		}, cfg.Engine.KeyPrefix)
		if err != nil {
			logger.Fatal("Failed to create engine store", zap.Error(err))
		}
		defer engineStore.Close()
		logger.Info("Search engine client created", zap.Strings("addrs", cfg.Engine.Addrs))
	} else {
		logger.Info("Search engine not configured, relational fallback serves all queries")
	}

	var brokerStore *dbRedis.Broker
	if cfg.BrokerEnabled() {
		brokerStore, err = dbRedis.NewBroker(dbRedis.Config{
			Addrs:    cfg.Broker.Addrs,
			Password: cfg.Broker.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create broker store", zap.Error(err))
		}
		defer brokerStore.Close()
		logger.Info("Job broker client created", zap.Strings("addrs", cfg.Broker.Addrs))
	} else {
		logger.Info("Job broker not configured, reindex requests run inline")
	}

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	var engine searchuc.Engine
	if engineStore != nil {
		engine = engineStore
	}
	searchSvc := searchuc.New(engine, venues, logger).
		WithBatchSize(cfg.Reindex.BatchSize)

	// Runner selection happens once, here: queued when a broker exists,
	// inline otherwise. The transport only interprets the Outcome.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var runner reindexuc.Runner
	if brokerStore != nil {
		runner = reindexuc.NewQueuedRunner(brokerStore, logger)
		worker := reindexuc.NewWorker(
			brokerStore, searchSvc, logger,
			cfg.Reindex.MaxAttempts,
			time.Duration(cfg.Reindex.BackoffBaseSec)*time.Second,
		)
		for i := 0; i < cfg.Reindex.Workers; i++ {
			go worker.Run(workerCtx)
		}
		logger.Info("Reindex workers started", zap.Int("workers", cfg.Reindex.Workers))
	} else {
		runner = reindexuc.NewInlineRunner(searchSvc, logger)
	}

	var brokerPinger, enginePinger healthuc.Pinger
	if brokerStore != nil {
		brokerPinger = brokerStore
	}
	if engineStore != nil {
		enginePinger = engineStore
	}
	healthSvc := healthuc.New(venues, brokerPinger, enginePinger).
		WithProbeTimeout(time.Duration(cfg.Health.ProbeTimeoutMs) * time.Millisecond)

	normalizer := query.NewNormalizer(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)

	server := chiTransport.NewServer(normalizer, searchSvc, runner, healthSvc, cfg.Auth.AdminKeys, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
