package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "pod", cfg.Elasticsearch.Index)
	assert.Equal(t, 7.0, cfg.Matching.GoodThreshold)
	assert.Equal(t, 3.0, cfg.Matching.PotentialThreshold)
	assert.Equal(t, 5*time.Second, cfg.Elasticsearch.Timeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
elasticsearch:
  index: catalog
  timeout: 2s
matching:
  goodThreshold: 9
  foldFreeText: true
`), 0o600))
	t.Setenv("PM_MATCHING_WORKERS", "3")
	t.Setenv("PM_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "catalog", cfg.Elasticsearch.Index)
	assert.Equal(t, 2*time.Second, cfg.Elasticsearch.Timeout)
	assert.Equal(t, 9.0, cfg.Matching.GoodThreshold)
	assert.Equal(t, 3.0, cfg.Matching.PotentialThreshold)
	assert.True(t, cfg.Matching.FoldFreeText)
	assert.Equal(t, 3, cfg.Matching.Workers)
	assert.True(t, cfg.Redis.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted thresholds", func(c *Config) { c.Matching.PotentialThreshold = 8 }},
		{"equal thresholds", func(c *Config) { c.Matching.PotentialThreshold = 7 }},
		{"negative boost", func(c *Config) { c.Matching.BrandNameBoost = -1 }},
		{"empty index", func(c *Config) { c.Elasticsearch.Index = " " }},
		{"no addresses", func(c *Config) { c.Elasticsearch.Addresses = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDevelopmentConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, time.Minute, cfg.Postgres.SnapshotInterval)
	assert.Equal(t, "match-events", cfg.Kafka.Topics.MatchEvents)
}
