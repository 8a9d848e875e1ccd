// Package engine assembles the search stack shared by the commands:
// Elasticsearch behind the resilience wrapper, optionally behind the Redis
// outcome cache, and the Transformer options derived from configuration.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/gateway"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/resilience"
)

type Engine struct {
	// Search is the outermost gateway.
	Search  matcher.SearchGateway
	Elastic *gateway.Elastic
	// Cache and Redis are nil when caching is disabled or Redis was
	// unreachable at startup.
	Cache   *cache.Gateway
	Redis   *redis.Client
	options []matcher.Option
}

// New builds the stack. An unreachable Redis downgrades to uncached search.
func New(cfg *config.Config, m *metrics.Metrics) (*Engine, error) {
	es, err := gateway.NewElastic(cfg.Elasticsearch)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch gateway: %w", err)
	}
	e := &Engine{Elastic: es}
	e.Search = gateway.NewResilient("elasticsearch", es, ResilientConfig(cfg), m)

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, continuing without cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			e.Redis = rc
			e.Cache = cache.New(e.Search, rc, cfg.Redis.CacheTTL, m)
			e.Search = e.Cache
		}
	}

	e.options = []matcher.Option{
		matcher.WithQueryConfig(query.Config{
			ProductNameBoost: cfg.Matching.ProductNameBoost,
			BrandNameBoost:   cfg.Matching.BrandNameBoost,
			FoldFreeText:     cfg.Matching.FoldFreeText,
		}),
		matcher.WithThresholds(matcher.Thresholds{
			Potential: cfg.Matching.PotentialThreshold,
			Good:      cfg.Matching.GoodThreshold,
		}),
	}
	if m != nil {
		e.options = append(e.options, matcher.WithMetrics(m))
	}
	return e, nil
}

// ResilientConfig derives the gateway's resilience settings.
func ResilientConfig(cfg *config.Config) gateway.ResilientConfig {
	return gateway.ResilientConfig{
		Timeout:           cfg.Elasticsearch.Timeout,
		MaxAttempts:       cfg.Elasticsearch.MaxRetries + 1,
		InitialDelay:      100 * time.Millisecond,
		RequestsPerSecond: cfg.Elasticsearch.RequestsPerSecond,
		Burst:             cfg.Elasticsearch.Burst,
		Breaker: resilience.BreakerConfig{
			Failures: cfg.Resilience.FailureThreshold,
			Cooldown: cfg.Resilience.ResetTimeout,
			Probes:   1,
		},
	}
}

// NewTransformer builds a Transformer for mapping with the configured
// thresholds and boosts. extra options are applied last.
func (e *Engine) NewTransformer(mapping []product.InputField, extra ...matcher.Option) (*matcher.Transformer, error) {
	opts := make([]matcher.Option, 0, len(e.options)+len(extra))
	opts = append(opts, e.options...)
	opts = append(opts, extra...)
	return matcher.New(mapping, e.Search, opts...)
}

func (e *Engine) Close() error {
	if e.Redis != nil {
		return e.Redis.Close()
	}
	return nil
}
