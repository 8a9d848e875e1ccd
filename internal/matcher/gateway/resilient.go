package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/resilience"
)

type ResilientConfig struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxAttempts includes the first call.
	MaxAttempts  int
	InitialDelay time.Duration
	// RequestsPerSecond of zero disables rate limiting.
	RequestsPerSecond float64
	Burst             int
	Breaker           resilience.BreakerConfig
}

// Resilient wraps a gateway. Each Search waits on the rate limiter, then runs
// through the circuit breaker, retrying transient failures with a timeout per
// attempt. The breaker sees one outcome per Search, not per attempt.
type Resilient struct {
	next    matcher.SearchGateway
	limiter *rate.Limiter
	breaker *resilience.Breaker
	policy  resilience.Policy
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewResilient wraps next. m may be nil.
func NewResilient(name string, next matcher.SearchGateway, cfg ResilientConfig, m *metrics.Metrics) *Resilient {
	r := &Resilient{
		next:    next,
		metrics: m,
		policy: resilience.Policy{
			Name:      name + " search",
			Attempts:  cfg.MaxAttempts,
			Timeout:   cfg.Timeout,
			Backoff:   resilience.Backoff{Initial: cfg.InitialDelay, Max: 2 * time.Second},
			Retryable: Transient,
		},
		logger: slog.Default().With("component", "resilient-gateway", "name", name),
	}
	if cfg.RequestsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	breakerCfg := cfg.Breaker
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(resilience.StateClosed))
		onTransition := breakerCfg.OnTransition
		breakerCfg.OnTransition = func(name string, from, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			if onTransition != nil {
				onTransition(name, from, to)
			}
		}
	}
	r.breaker = resilience.NewBreaker(name, breakerCfg)
	return r
}

// Search implements matcher.SearchGateway.
func (r *Resilient) Search(ctx context.Context, q query.Query) (*matcher.Hit, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			r.countError("rate_limited")
			return nil, fmt.Errorf("%w: waiting for search slot: %w", apperrors.ErrRateLimited, err)
		}
	}
	if err := r.breaker.Allow(); err != nil {
		return nil, r.classify(err)
	}

	var hit *matcher.Hit
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		h, err := r.next.Search(ctx, q)
		if err == nil {
			hit = h
		}
		return err
	})
	r.breaker.Record(breakerOutcome(err))
	if err != nil {
		return nil, r.classify(err)
	}
	return hit, nil
}

// breakerOutcome keeps permanent errors, such as a rejected query, from
// tripping the circuit: the index answered.
func breakerOutcome(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || Transient(err) {
		return err
	}
	return nil
}

// State returns the circuit breaker state.
func (r *Resilient) State() resilience.State {
	return r.breaker.State()
}

func (r *Resilient) classify(err error) error {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		r.countError("circuit_open")
		return fmt.Errorf("%w: %w", apperrors.ErrSearchUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, apperrors.ErrTimeout):
		r.countError("timeout")
		if errors.Is(err, apperrors.ErrTimeout) {
			return err
		}
		return fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	case errors.Is(err, apperrors.ErrRateLimited):
		r.countError("rate_limited")
	case errors.Is(err, apperrors.ErrSearchUnavailable):
		r.countError("unavailable")
	default:
		r.countError("other")
	}
	r.logger.Warn("search failed", "error", err)
	return err
}

func (r *Resilient) countError(reason string) {
	if r.metrics != nil {
		r.metrics.GatewayErrorsTotal.WithLabelValues(reason).Inc()
	}
}

// Transient reports whether a search error may succeed on retry.
func Transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, apperrors.ErrSearchUnavailable) ||
		errors.Is(err, apperrors.ErrRateLimited) ||
		errors.Is(err, apperrors.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
