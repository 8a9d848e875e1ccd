package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff computes the pause before a retry. The zero value waits 100ms,
// doubling up to 10s, with 10% jitter.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Delay returns the pause after the given failed attempt, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	initial, maxDelay, mult, jitter := b.Initial, b.Max, b.Multiplier, b.Jitter
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	if mult < 1 {
		mult = 2
	}
	if jitter <= 0 {
		jitter = 0.1
	}

	d := float64(initial)
	for i := 1; i < attempt && d < float64(maxDelay); i++ {
		d *= mult
	}
	d += d * jitter * (2*rand.Float64() - 1)
	if d > float64(maxDelay) {
		d = float64(maxDelay)
	}
	if d <= 0 {
		d = float64(initial)
	}
	return time.Duration(d)
}

// Policy retries an operation with a bounded number of attempts, each under
// its own deadline.
type Policy struct {
	Name string
	// Attempts includes the first call. Zero means one attempt.
	Attempts int
	// Timeout bounds each attempt; zero leaves only the caller's deadline.
	Timeout time.Duration
	Backoff Backoff
	// Retryable reports whether a failure is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool
}

// Do calls fn until it succeeds or the policy gives up. The last error is
// returned unwrapped when no retry was made.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)
	var (
		err     error
		attempt int
	)
	for attempt = 1; ; attempt++ {
		err = p.attempt(ctx, fn)
		if err == nil {
			if attempt > 1 {
				slog.Debug("retry succeeded", "operation", p.Name, "attempt", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == attempts || (p.Retryable != nil && !p.Retryable(err)) {
			break
		}

		delay := p.Backoff.Delay(attempt)
		slog.Warn("attempt failed, retrying",
			"operation", p.Name,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: gave up during backoff: %w", p.Name, ctx.Err())
		}
	}
	if attempt == 1 {
		return err
	}
	return fmt.Errorf("%s: %d attempts failed: %w", p.Name, attempt, err)
}

func (p Policy) attempt(ctx context.Context, fn func(context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(actx)
}
