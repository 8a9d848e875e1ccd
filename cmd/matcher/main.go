// Command matcher serves the product match engine over HTTP.
//
// Rows are matched against the Elasticsearch product index through a
// rate-limited, circuit-broken gateway with an optional Redis outcome cache.
// Statistics are kept in process and served at GET /api/v1/stats; run
// summaries are stored in PostgreSQL when enabled and match events are
// published to Kafka when enabled.
//
// Usage:
//
//	go run ./cmd/matcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/runner"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting match service", "port", cfg.Server.Port, "index", cfg.Elasticsearch.Index)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	shutdownMetrics := metrics.StartServer(cfg.Metrics)

	eng, err := engine.New(cfg, m)
	if err != nil {
		slog.Error("failed to build search engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	checker := health.NewChecker()
	checker.Register("elasticsearch", health.PingCheck(eng.Elastic))
	if eng.Redis != nil {
		checker.Register("redis", health.OptionalPingCheck(eng.Redis))
		slog.Info("outcome cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var runStore *store.Store
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		runStore = store.New(db)
		if err := runStore.Migrate(ctx); err != nil {
			slog.Error("failed to migrate run store", "error", err)
			os.Exit(1)
		}
		checker.Register("postgres", health.OptionalPingCheck(db))
	}

	aggregator := analytics.NewAggregator()
	sinks := matcher.EventSinks{aggregator}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents)
		defer producer.Close()
		events := kafka.NewBatcher(producer, 500, time.Second)
		events.Start(ctx)
		defer events.Close()
		collector := analytics.NewCollector(events)
		sinks = append(sinks, collector)
		slog.Info("match events publishing", "topic", cfg.Kafka.Topics.MatchEvents)
	}
	factory := func(mapping []product.InputField) (*matcher.Transformer, error) {
		return eng.NewTransformer(mapping, matcher.WithEvents(sinks))
	}

	// A nil *store.Store must not reach the interfaces below.
	var (
		runs    runner.RunStore
		history handler.RunReader
		cache   handler.Cache
	)
	if runStore != nil {
		runs, history = runStore, runStore
		runStore.StartPeriodicSave(ctx, aggregator, cfg.Postgres.SnapshotInterval)
	}
	if eng.Cache != nil {
		cache = eng.Cache
	}
	r := runner.New(aggregator, runs, m, runner.Config{
		Workers:  cfg.Matching.Workers,
		FailFast: cfg.Matching.FailFast,
	})

	h := handler.New(factory, r, cache, history)
	statsHandler := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	h.Register(mux)
	statsHandler.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}()

	slog.Info("match service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("match service stopped")
}
