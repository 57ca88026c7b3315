package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)

	assert.True(t, cfg.Generation.Enabled)
	assert.Equal(t, 850, cfg.Generation.ResponseMaxTokens)
	assert.Equal(t, 120, cfg.Generation.SummaryMaxTokens)

	assert.Equal(t, 5, cfg.Triage.TopK)
	assert.InDelta(t, 0.65, cfg.Triage.ConfidenceThreshold, 1e-9)

	assert.Equal(t, 100, cfg.Ingest.BatchSize)
	assert.Equal(t, 1000, cfg.Ingest.BatchDelayMs)

	assert.Equal(t, "0.0.0.0", cfg.Server.Addr)
	assert.Equal(t, "8000", cfg.Server.Port)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-key")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", cfg.Embedding.OpenaiApiKey)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Address)
}
