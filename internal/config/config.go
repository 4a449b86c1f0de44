// Package config loads go-librarian configuration from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file in the working directory. Missing keys fall back to defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Watchlist backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	Env      string `env:"GO_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Port     string `env:"PORT" envDefault:"3000"`

	Google    Google
	Catalog   Catalog
	Watchlist Watchlist
}

// Google holds the Generative Language API settings.
type Google struct {
	// Up to four keys; empty ones are dropped by Keys.
	Key1 string `env:"GOOGLE_KEY_1"`
	Key2 string `env:"GOOGLE_KEY_2"`
	Key3 string `env:"GOOGLE_KEY_3"`
	Key4 string `env:"GOOGLE_KEY_4"`

	BaseURL        string        `env:"GOOGLE_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	TextModel      string        `env:"GOOGLE_TEXT_MODEL" envDefault:"gemini-2.0-flash"`
	LiveURL        string        `env:"GOOGLE_LIVE_URL" envDefault:"wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"`
	LiveModel      string        `env:"GOOGLE_LIVE_MODEL" envDefault:"models/gemini-2.5-flash-native-audio-preview-09-2025"`
	Voice          string        `env:"GOOGLE_LIVE_VOICE" envDefault:"Orus"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// FailFast stops rotating on server and empty-response errors.
	FailFast bool `env:"GOOGLE_FAIL_FAST" envDefault:"false"`
}

// Catalog points at the book dataset. An empty path selects the embedded dataset.
type Catalog struct {
	Path string `env:"CATALOG_PATH"`
}

// Watchlist selects and configures the bookmark store.
type Watchlist struct {
	Backend    string `env:"WATCHLIST_BACKEND" envDefault:"json"`
	JSONPath   string `env:"WATCHLIST_JSON_PATH" envDefault:"data/watchlist.json"`
	SQLitePath string `env:"WATCHLIST_SQLITE_PATH" envDefault:"data/watchlist.db"`
	RedisAddr  string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass  string `env:"REDIS_PASSWORD"`
	RedisDB    int    `env:"REDIS_DB" envDefault:"0"`
}

// Keys returns the configured API keys in order, with blanks removed.
func (g Google) Keys() []string {
	var keys []string
	for _, k := range []string{g.Key1, g.Key2, g.Key3, g.Key4} {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	return Parse()
}

// Parse parses the current environment without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
// Having no API keys is not an error: dispatch fails per request instead.
func (c *Config) Validate() error {
	switch c.Watchlist.Backend {
	case BackendJSON, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("config: unknown watchlist backend %q", c.Watchlist.Backend)
	}
	if c.Google.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	if c.Port == "" {
		return errors.New("config: PORT is required")
	}
	return nil
}

// IsProduction reports whether GO_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
