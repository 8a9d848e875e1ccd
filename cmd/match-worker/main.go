// Command match-worker matches rows arriving on the match-requests topic and
// publishes one response per request to the match-results topic. Match
// events go to the match-events topic for the analytics service.
//
// Usage:
//
//	go run ./cmd/match-worker [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/worker"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/metrics"
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
	slog.Info("starting match worker",
		"requests", cfg.Kafka.Topics.MatchRequests,
		"results", cfg.Kafka.Topics.MatchResults,
	)

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

	eventProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents)
	defer eventProducer.Close()
	events := kafka.NewBatcher(eventProducer, 500, time.Second)
	events.Start(ctx)
	defer events.Close()
	collector := analytics.NewCollector(events)

	resultProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchResults)
	defer resultProducer.Close()
	results := kafka.NewBatcher(resultProducer, 100, 200*time.Millisecond)
	results.Start(ctx)
	defer results.Close()

	w := worker.New(func(mapping []product.InputField) (*matcher.Transformer, error) {
		return eng.NewTransformer(mapping, matcher.WithEvents(collector))
	}, results)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MatchRequests, w.Handler())

	checker := health.NewChecker()
	checker.Register("elasticsearch", health.PingCheck(eng.Elastic))
	if eng.Redis != nil {
		checker.Register("redis", health.OptionalPingCheck(eng.Redis))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("health server error", "error", err)
		}
	}()

	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown error", "error", err)
	}
	slog.Info("match worker stopped", "results_dropped", results.Dropped())
}
