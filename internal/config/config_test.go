package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "lexgate", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Router.HealthCheckInterval)
	assert.Equal(t, 15*time.Minute, cfg.Router.QuotaCooldown)
	assert.Equal(t, 512, cfg.Router.AuditLogSize)
	assert.Empty(t, cfg.Providers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LEXGATE_PORT", "9090")
	t.Setenv("LEXGATE_VERSION", "1.2.3")
	t.Setenv("LEXGATE_QUOTA_COOLDOWN", "30m")
	t.Setenv("LEXGATE_LOW_LATENCY_PROVIDER", "turbo")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "1.2.3", cfg.Telemetry.ServiceVersion)
	assert.Equal(t, 30*time.Minute, cfg.Router.QuotaCooldown)
	assert.Equal(t, "turbo", cfg.Router.LowLatencyProvider)
	assert.True(t, cfg.Telemetry.Enabled)
}

const providersJSON = `[
	{
		"name": "openai-main",
		"kind": "openai",
		"model": "gpt-4o",
		"tier": 1,
		"enabled": true,
		"credentials": ["key-a", "key-b"],
		"max_requests_per_minute": 60,
		"timeout_seconds": 20,
		"max_retry_attempts": 2,
		"classify_rule": "Code == 429"
	},
	{
		"name": "anthropic-fallback",
		"kind": "anthropic",
		"model": "claude-sonnet",
		"tier": 2,
		"enabled": true,
		"credentials": ["key-c"]
	}
]`

func TestLoadProvidersInline(t *testing.T) {
	t.Setenv("LEXGATE_PROVIDERS", providersJSON)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)

	p := cfg.Providers[0]
	assert.Equal(t, "openai-main", p.Name)
	assert.Equal(t, "openai", p.Kind)
	assert.Equal(t, 1, p.Tier)
	assert.Equal(t, []string{"key-a", "key-b"}, p.Credentials)
	assert.Equal(t, 60, p.MaxRequestsPerMinute)
	assert.Equal(t, 20, p.TimeoutSeconds)
	assert.Equal(t, "Code == 429", p.ClassifyRule)

	assert.Equal(t, "anthropic-fallback", cfg.Providers[1].Name)
}

func TestLoadProvidersFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	require.NoError(t, os.WriteFile(path, []byte(providersJSON), 0o600))
	t.Setenv("LEXGATE_PROVIDERS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Providers, 2)
}

func TestLoadProvidersInvalidJSON(t *testing.T) {
	t.Setenv("LEXGATE_PROVIDERS", "{not json")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProvidersMissingFile(t *testing.T) {
	t.Setenv("LEXGATE_PROVIDERS_FILE", filepath.Join(t.TempDir(), "absent.json"))

	_, err := Load()
	assert.Error(t, err)
}
