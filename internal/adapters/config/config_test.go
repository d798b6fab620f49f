package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "manbo", cfg.App.Name)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.AI.DefaultProvider)
	assert.Equal(t, 120*time.Second, cfg.AI.RequestTimeout)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 64, cfg.Analysis.QueueSize)
	assert.Equal(t, 6, cfg.Analysis.MaxToolRounds)
	assert.Equal(t, []string{"market", "fundamentals", "news", "social"}, cfg.Analysis.Analysts)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANALYSIS_WORKERS", "8")
	t.Setenv("ANALYSIS_QUEUE_SIZE", "128")
	t.Setenv("DEFAULT_AI_PROVIDER", "gemini")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.Equal(t, 128, cfg.Analysis.QueueSize)
	assert.Equal(t, "gemini", cfg.AI.DefaultProvider)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("ANALYSIS_WORKERS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("DEFAULT_AI_PROVIDER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}
