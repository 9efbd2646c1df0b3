package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.StaleAfter)
	assert.Contains(t, cfg.SessionFile(), "session.json")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRADESCRIBE_API_URL", "https://api.example.com/api")
	t.Setenv("TRADESCRIBE_TIMEOUT", "10s")
	t.Setenv("TRADESCRIBE_STALE_AFTER", "5m")
	t.Setenv("TRADESCRIBE_DEBUG", "true")

	cfg := DefaultConfig()

	assert.Equal(t, "https://api.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.StaleAfter)
	assert.True(t, cfg.Debug)
}

func TestLoadFromEnvIgnoresInvalidDurations(t *testing.T) {
	t.Setenv("TRADESCRIBE_TIMEOUT", "not-a-duration")

	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
