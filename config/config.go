// Package config loads service configuration from an optional YAML file with
// environment-variable overrides. Secrets (API keys, tokens, Redis password)
// come from the environment only and never from the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Config is the full service configuration.
	Config struct {
		// HTTPAddr is the listen address, e.g. ":8000".
		HTTPAddr string `yaml:"http_addr"`
		// Debug enables request/response body logging and debug endpoints.
		Debug bool `yaml:"debug"`

		// Mode selects the orchestration strategy: "direct" or "plan".
		Mode string `yaml:"mode"`
		// MaxAttempts bounds the plan-mode retry loop.
		MaxAttempts int `yaml:"max_attempts"`
		// CallTimeout bounds each external model or data-source call.
		CallTimeout time.Duration `yaml:"call_timeout"`
		// HistoryWindow bounds retained conversation exchanges per session.
		HistoryWindow int `yaml:"history_window"`

		Cache   Cache   `yaml:"cache"`
		Model   Model   `yaml:"model"`
		Shopify Shopify `yaml:"shopify"`
	}

	// Cache configures the answer cache.
	Cache struct {
		// TTL is the entry expiry.
		TTL time.Duration `yaml:"ttl"`
		// RedisAddr selects the Redis backend when non-empty; otherwise the
		// in-memory store is used and cache contents do not survive a
		// process restart. Accepts a redis:// URL (REDIS_URL) or a bare
		// host:port.
		RedisAddr string `yaml:"redis_addr"`
		// RedisPassword comes from REDIS_PASSWORD.
		RedisPassword string `yaml:"-"`
	}

	// Model configures the text-generation backend.
	Model struct {
		// Provider is "openai" or "anthropic".
		Provider string `yaml:"provider"`
		// Name is the provider-specific model identifier.
		Name string `yaml:"name"`
		// APIKey comes from OPENAI_API_KEY or ANTHROPIC_API_KEY depending
		// on Provider.
		APIKey string `yaml:"-"`
		// TPMLimit is the adaptive tokens-per-minute budget for provider
		// calls; zero disables client-side rate limiting.
		TPMLimit float64 `yaml:"tpm_limit"`
	}

	// Shopify configures the commerce data source.
	Shopify struct {
		// APIVersion pins the Admin API version.
		APIVersion string `yaml:"api_version"`
	}
)

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty), then environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPAddr:      ":8000",
		Mode:          "direct",
		MaxAttempts:   2,
		CallTimeout:   30 * time.Second,
		HistoryWindow: 10,
		Cache:         Cache{TTL: 300 * time.Second},
		Model:         Model{Provider: "openai", Name: "gpt-4o-mini"},
		Shopify:       Shopify{APIVersion: "2024-01"},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTPAddr = envOr("STORELENS_ADDR", cfg.HTTPAddr)
	cfg.Mode = envOr("STORELENS_MODE", cfg.Mode)
	cfg.MaxAttempts = envIntOr("STORELENS_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.CallTimeout = envDurationOr("STORELENS_CALL_TIMEOUT", cfg.CallTimeout)
	cfg.Cache.TTL = envDurationOr("STORELENS_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.RedisAddr = envOr("REDIS_URL", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.Model.Provider = envOr("STORELENS_MODEL_PROVIDER", cfg.Model.Provider)
	cfg.Model.Name = envOr("STORELENS_MODEL", cfg.Model.Name)
	cfg.Model.TPMLimit = envFloatOr("STORELENS_MODEL_TPM", cfg.Model.TPMLimit)

	switch cfg.Model.Provider {
	case "openai":
		cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		cfg.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	default:
		return Config{}, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}

	if cfg.Mode != "direct" && cfg.Mode != "plan" {
		return Config{}, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	return cfg, nil
}

// envOr returns the environment variable value or a default.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envIntOr returns the environment variable parsed as int or a default.
func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envFloatOr returns the environment variable parsed as a float or a default.
func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// envDurationOr returns the environment variable parsed as a duration or a
// default.
func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
