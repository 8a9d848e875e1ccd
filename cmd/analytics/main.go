// Command analytics aggregates match events published by the match service
// and the match worker.
//
// It consumes the match-events topic, keeps status, segment, strategy and
// latency figures in memory, snapshots them to PostgreSQL when enabled and
// serves them at GET /api/v1/stats.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/logger"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port, "topic", cfg.Kafka.Topics.MatchEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		snapshots := store.New(db)
		if err := snapshots.Migrate(ctx); err != nil {
			slog.Error("failed to migrate snapshot store", "error", err)
			os.Exit(1)
		}
		if last, err := snapshots.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not read last snapshot", "error", err)
		} else if last != nil {
			slog.Info("last snapshot", "total_rows", last.TotalRows, "since", last.Since)
		}
		snapshots.StartPeriodicSave(ctx, aggregator, cfg.Postgres.SnapshotInterval)
		checker.Register("postgres", health.OptionalPingCheck(db))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents, analytics.HandleEvent(aggregator))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()

	statsHandler := analytics.NewHandler(aggregator)
	mux := http.NewServeMux()
	statsHandler.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
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
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}
