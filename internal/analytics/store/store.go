// Package store persists run summaries and periodic statistics snapshots to
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/postgres"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS match_runs (
    id          TEXT PRIMARY KEY,
    row_count   INTEGER NOT NULL,
    failed      INTEGER NOT NULL,
    summary     JSONB NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS match_run_statuses (
    run_id TEXT NOT NULL REFERENCES match_runs(id) ON DELETE CASCADE,
    status TEXT NOT NULL,
    count  BIGINT NOT NULL,
    PRIMARY KEY (run_id, status)
);
CREATE TABLE IF NOT EXISTS match_stats_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    data        JSONB NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Run is the persisted record of one batch run.
type Run struct {
	ID         string            `json:"id"`
	Rows       int               `json:"rows"`
	Failed     int               `json:"failed"`
	Summary    analytics.Summary `json:"summary"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "match-run-store"),
	}
}

// Migrate creates the store's tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating match run tables: %w", err)
	}
	return nil
}

// SaveRun stores a run and its per-status counts in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_runs (id, row_count, failed, summary, started_at, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			run.ID, run.Rows, run.Failed, summary, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		); err != nil {
			return fmt.Errorf("inserting run %s: %w", run.ID, err)
		}
		for status, count := range run.Summary.MatchStatuses {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO match_run_statuses (run_id, status, count) VALUES ($1, $2, $3)`,
				run.ID, status, count,
			); err != nil {
				return fmt.Errorf("inserting status count %s: %w", status, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("run summary saved", "run_id", run.ID, "rows", run.Rows, "failed", run.Failed)
	return nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT id, row_count, failed, summary, started_at, finished_at FROM match_runs WHERE id = $1`, id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, row_count, failed, summary, started_at, finished_at
		 FROM match_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			s.logger.Warn("skipping corrupt run row", "error", err)
			continue
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run     Run
		summary []byte
	)
	if err := sc.Scan(&run.ID, &run.Rows, &run.Failed, &summary, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return nil, fmt.Errorf("unmarshaling run summary: %w", err)
	}
	return &run, nil
}

// SaveSnapshot persists a statistics snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO match_stats_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving stats snapshot: %w", err)
	}
	s.logger.Info("stats snapshot saved", "total_rows", stats.TotalRows)
	return nil
}

// LatestSnapshot loads the most recent snapshot, or nil if none exists.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM match_stats_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// StartPeriodicSave snapshots agg every interval until ctx is cancelled, then
// takes a final snapshot.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
