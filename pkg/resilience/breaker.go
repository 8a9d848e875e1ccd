// Package resilience guards calls to a flaky dependency with a circuit breaker
// and a retry policy.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Breaker.Allow while calls are being shed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type BreakerConfig struct {
	// Failures is the number of consecutive failures that opens the circuit.
	Failures int
	// Cooldown is how long the circuit stays open before a probe is let through.
	Cooldown time.Duration
	// Probes bounds concurrent calls while half-open.
	Probes int
	// OnTransition runs under the breaker's lock and must not call back into it.
	OnTransition func(name string, from, to State)
}

// Breaker sheds calls after repeated failures. Callers ask Allow before the
// call and report its error with Record.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int
	now      func() time.Time
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.Failures <= 0 {
		cfg.Failures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. Every nil return must be paired
// with exactly one Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		wait := b.cfg.Cooldown - b.now().Sub(b.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, b.name, wait.Round(time.Millisecond))
		}
		b.transition(StateHalfOpen)
		b.inFlight = 0
	}
	if b.state == StateHalfOpen {
		if b.inFlight >= b.cfg.Probes {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, b.name)
		}
		b.inFlight++
	}
	return nil
}

// Record reports the outcome of an allowed call. Cancellation by the caller
// says nothing about the dependency and is ignored.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.inFlight > 0 {
		b.inFlight--
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	if err == nil {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
			b.logger.Info("circuit closed after successful probe")
		}
		return
	}

	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.open()
		b.logger.Warn("probe failed, circuit re-opened", "error", err)
	case b.state == StateClosed && b.failures >= b.cfg.Failures:
		b.open()
		b.logger.Warn("circuit opened", "consecutive_failures", b.failures, "error", err)
	}
}

// Do runs fn when the circuit allows it and records the result.
func (b *Breaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	b.Record(err)
	return err
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnTransition != nil {
		b.cfg.OnTransition(b.name, from, to)
	}
}
