package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg := FromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 20, cfg.Results.ChunkSize)
	assert.Equal(t, 500, cfg.Results.ListLimit)
	assert.Equal(t, 2*time.Second, cfg.Results.WarmupTimeout)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Nil(t, cfg.Results.FallbackSessions)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("RESULTS_CHUNK_SIZE", 0)
	v.Set("RESULTS_READ_TIMEOUT", "not-a-duration")
	v.Set("RESULTS_FALLBACK_SESSIONS", " 2023-2024, ,2024-2025 ")

	cfg := FromViper(v)
	assert.Equal(t, 20, cfg.Results.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.Results.ReadTimeout)
	assert.Equal(t, []string{"2023-2024", "2024-2025"}, cfg.Results.FallbackSessions)
}
