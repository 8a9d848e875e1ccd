// Package runner processes batches of rows through a Transformer and reports
// the run's statistics.
package runner

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/metrics"
)

// Transformer matches single rows. *matcher.Transformer satisfies it.
type Transformer interface {
	Transform(ctx context.Context, values []any) (matcher.Row, error)
}

// Statistics is the run-scoped statistics state. *analytics.Aggregator
// satisfies it.
type Statistics interface {
	Reset()
	Summarize() analytics.Summary
}

// RunStore persists finished runs. *store.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run store.Run) error
}

type Config struct {
	// Workers bounds the rows in flight. Zero means one.
	Workers int
	// FailFast aborts the run on the first failed row.
	FailFast bool
}

// RowError describes a row that could not be matched.
type RowError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Result is the outcome of a run. Rows[i] belongs to input row i and is nil
// when that row failed.
type Result struct {
	RunID      string            `json:"run_id"`
	Rows       []matcher.Row     `json:"rows"`
	Failed     int               `json:"failed"`
	Errors     []RowError        `json:"errors,omitempty"`
	Summary    analytics.Summary `json:"summary"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Runner serializes runs: statistics are scoped to one run at a time.
type Runner struct {
	stats   Statistics
	store   RunStore
	metrics *metrics.Metrics
	cfg     Config
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	logger  *slog.Logger
}

// New creates a Runner. runs and m may be nil.
func New(stats Statistics, runs RunStore, m *metrics.Metrics, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{
		stats:   stats,
		store:   runs,
		metrics: m,
		cfg:     cfg,
		entropy: ulid.Monotonic(rand.Reader, 0),
		logger:  slog.Default().With("component", "match-runner"),
	}
}

// Run matches rows with t and returns the run result. t must record into the
// runner's statistics. With FailFast the first row error cancels the
// remaining rows and is returned alongside the partial result.
func (r *Runner) Run(ctx context.Context, t Transformer, rows [][]any) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Result{
		RunID:     ulid.MustNew(ulid.Now(), r.entropy).String(),
		Rows:      make([]matcher.Row, len(rows)),
		StartedAt: time.Now().UTC(),
	}
	logger := r.logger.With("run_id", res.RunID)
	logger.Info("run started", "rows", len(rows), "workers", r.cfg.Workers)

	r.stats.Reset()

	var (
		errMu  sync.Mutex
		rowErr []RowError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, values := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			row, err := t.Transform(gctx, values)
			if err != nil {
				errMu.Lock()
				rowErr = append(rowErr, RowError{Index: i, Error: err.Error()})
				errMu.Unlock()
				logger.Warn("row failed", "index", i, "error", err)
				if r.cfg.FailFast {
					return fmt.Errorf("row %d: %w", i, err)
				}
				return nil
			}
			res.Rows[i] = row
			return nil
		})
	}
	runErr := g.Wait()
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	res.Errors = rowErr
	res.Failed = len(rowErr)
	res.Summary = r.stats.Summarize()
	res.FinishedAt = time.Now().UTC()

	outcome := "completed"
	if runErr != nil {
		outcome = "failed"
	}
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	}

	if r.store != nil {
		if err := r.store.SaveRun(ctx, store.Run{
			ID:         res.RunID,
			Rows:       len(rows),
			Failed:     res.Failed,
			Summary:    res.Summary,
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
		}); err != nil {
			logger.Error("saving run summary failed", "error", err)
			runErr = errors.Join(runErr, err)
		}
	}

	logger.Info("run finished",
		"outcome", outcome,
		"rows", len(rows),
		"failed", res.Failed,
		"statuses", res.Summary.MatchStatuses,
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, runErr
}
