package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.HTTPAddr)
	require.Equal(t, "direct", cfg.Mode)
	require.Equal(t, 2, cfg.MaxAttempts)
	require.Equal(t, 300*time.Second, cfg.Cache.TTL)
	require.Equal(t, "openai", cfg.Model.Provider)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9000"
mode: plan
max_attempts: 3
cache:
  ttl: 10m
model:
  provider: anthropic
  name: claude-3-5-haiku-latest
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.Equal(t, "plan", cfg.Mode)
	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	require.Equal(t, "anthropic", cfg.Model.Provider)
	require.Equal(t, "claude-3-5-haiku-latest", cfg.Model.Name)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("STORELENS_MODE", "plan")
	t.Setenv("STORELENS_CACHE_TTL", "1m")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "plan", cfg.Mode)
	require.Equal(t, time.Minute, cfg.Cache.TTL)
	require.Equal(t, "sk-test", cfg.Model.APIKey)
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	t.Setenv("STORELENS_MODE", "hybrid")
	_, err := Load("")
	require.ErrorContains(t, err, `unknown mode "hybrid"`)

	t.Setenv("STORELENS_MODE", "direct")
	t.Setenv("STORELENS_MODEL_PROVIDER", "bedrock")
	_, err = Load("")
	require.ErrorContains(t, err, `unknown model provider "bedrock"`)
}
