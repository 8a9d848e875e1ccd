package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("index down")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("elasticsearch", cfg)
	b.now = c.now
	return b, c
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var seen []State
	b, c := newTestBreaker(BreakerConfig{
		Failures:     2,
		Cooldown:     time.Second,
		OnTransition: func(_ string, _, to State) { seen = append(seen, to) },
	})

	assert.ErrorIs(t, b.Do(func() error { return errDown }), errDown)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Do(func() error { return errDown }), errDown)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	c.advance(time.Second)
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, seen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Failures: 2})
	_ = b.Do(func() error { return errDown })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errDown })
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenAdmitsOneProbe(t *testing.T) {
	b, c := newTestBreaker(BreakerConfig{Failures: 1, Cooldown: time.Second})
	_ = b.Do(func() error { return errDown })
	c.advance(2 * time.Second)

	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	b.Record(errDown)
	assert.Equal(t, StateOpen, b.State())

	assert.Equal(t, "elasticsearch", b.Name())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Failures: 1})
	_ = b.Do(func() error { return context.Canceled })
	assert.Equal(t, StateClosed, b.State())
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Multiplier: 2, Jitter: 0.01}
	assert.InDelta(t, float64(10*time.Millisecond), float64(b.Delay(1)), float64(time.Millisecond))
	assert.InDelta(t, float64(20*time.Millisecond), float64(b.Delay(2)), float64(time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, b.Delay(10))
}

func TestPolicyRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	p := Policy{Name: "search", Attempts: 3, Backoff: Backoff{Initial: time.Millisecond}}
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errDown
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestPolicyGivesUp(t *testing.T) {
	attempts := 0
	p := Policy{Name: "search", Attempts: 2, Backoff: Backoff{Initial: time.Millisecond}}
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return errDown
	})
	assert.ErrorIs(t, err, errDown)
	assert.Contains(t, err.Error(), "2 attempts failed")
	assert.Equal(t, 2, attempts)
}

func TestPolicyStopsOnPermanentError(t *testing.T) {
	attempts := 0
	p := Policy{
		Name:      "search",
		Attempts:  5,
		Backoff:   Backoff{Initial: time.Millisecond},
		Retryable: func(err error) bool { return !errors.Is(err, errDown) },
	}
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return errDown
	})
	assert.Equal(t, errDown, err)
	assert.Equal(t, 1, attempts)
}

func TestPolicyBoundsEachAttempt(t *testing.T) {
	p := Policy{Name: "search", Timeout: 10 * time.Millisecond}
	err := p.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
