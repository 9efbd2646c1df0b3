package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the TradeScribe client.
type Config struct {
	// APIBaseURL is the base URL of the journal gateway, e.g.
	// "http://localhost:8000/api".
	APIBaseURL string `json:"api_base_url"`
	// AuthBaseURL is the base URL of the authentication provider.
	AuthBaseURL string `json:"auth_base_url"`

	// ConfigDir holds persisted credentials (session.json).
	ConfigDir string `json:"config_dir"`

	RequestTimeout time.Duration `json:"request_timeout"`
	StaleAfter     time.Duration `json:"stale_after"`

	Debug     bool   `json:"debug"`
	LogFormat string `json:"log_format"` // "text" or "json"
}

// DefaultConfig builds a Config from defaults, a .env file if present, and
// environment variable overrides, in that order.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	cfg := &Config{
		APIBaseURL:     "http://localhost:8000/api",
		AuthBaseURL:    "http://localhost:8000/auth",
		ConfigDir:      filepath.Join(home, ".tradescribe"),
		RequestTimeout: 30 * time.Second,
		StaleAfter:     time.Minute,
		Debug:          false,
		LogFormat:      "text",
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("TRADESCRIBE_API_URL"); val != "" {
		c.APIBaseURL = val
	}
	if val := os.Getenv("TRADESCRIBE_AUTH_URL"); val != "" {
		c.AuthBaseURL = val
	}
	if val := os.Getenv("TRADESCRIBE_CONFIG_DIR"); val != "" {
		c.ConfigDir = val
	}
	if val := os.Getenv("TRADESCRIBE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			c.RequestTimeout = d
		}
	}
	if val := os.Getenv("TRADESCRIBE_STALE_AFTER"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			c.StaleAfter = d
		}
	}
	if val := os.Getenv("TRADESCRIBE_DEBUG"); val != "" {
		if debug, err := strconv.ParseBool(val); err == nil {
			c.Debug = debug
		}
	}
	if val := os.Getenv("TRADESCRIBE_LOG_FORMAT"); val != "" {
		c.LogFormat = val
	}
}

// SessionFile returns the path of the persisted credential file.
func (c *Config) SessionFile() string {
	return filepath.Join(c.ConfigDir, "session.json")
}
