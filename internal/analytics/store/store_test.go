package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/postgres"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// openStore skips the test when PostgreSQL is unavailable.
func openStore(t *testing.T) *Store {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "productmatch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "productmatch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := New(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	run := Run{
		ID:     ulid.Make().String(),
		Rows:   3,
		Failed: 1,
		Summary: analytics.Summary{
			MatchStatuses: map[string]int64{"GOOD_MATCH": 1, "SKIPPED": 1},
			Segments:      map[string]int64{"Beverages": 1},
		},
		StartedAt:  time.Now().Add(-time.Second).UTC().Truncate(time.Millisecond),
		FinishedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Summary, got.Summary)
	assert.Equal(t, run.Rows, got.Rows)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))

	runs, err := s.ListRuns(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}

func TestGetRunNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openStore(t)
	agg := analytics.NewAggregator()
	agg.Record("GOOD_MATCH", "Food")

	require.NoError(t, s.SaveSnapshot(context.Background(), agg.Stats()))
	latest, err := s.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.EqualValues(t, 1, latest.TotalRows)
}
