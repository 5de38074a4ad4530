// Package config loads all LexGate configuration from environment
// variables at startup. Provider descriptors are declared as a JSON
// document, inline via LEXGATE_PROVIDERS or on disk via
// LEXGATE_PROVIDERS_FILE.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the LexGate gateway.
type Config struct {
	Port      int
	Version   string
	Telemetry TelemetryConfig
	Router    RouterConfig
	Providers []Provider
}

type TelemetryConfig struct {
	Enabled        bool
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
}

type RouterConfig struct {
	HealthCheckInterval time.Duration
	QuotaCooldown       time.Duration
	LowLatencyProvider  string
	EmbeddingProvider   string
	AuditLogSize        int
}

// Provider declares one upstream AI backend.
type Provider struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"` // openai | anthropic | openai-embeddings
	Endpoint string `json:"endpoint,omitempty"`
	Model    string `json:"model,omitempty"`
	Tier     int    `json:"tier"`
	Enabled  bool   `json:"enabled"`

	Credentials []string `json:"credentials"`

	MaxRequestsPerMinute    int    `json:"max_requests_per_minute"`
	MaxTokensPerRequest     int    `json:"max_tokens_per_request"`
	TimeoutSeconds          int    `json:"timeout_seconds"`
	MaxRetryAttempts        int    `json:"max_retry_attempts"`
	CircuitFailureThreshold int    `json:"circuit_failure_threshold"`
	CircuitResetSeconds     int    `json:"circuit_reset_seconds"`
	ClassifyRule            string `json:"classify_rule,omitempty"`
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() (*Config, error) {
	providers, err := loadProviders()
	if err != nil {
		return nil, err
	}

	version := envStr("LEXGATE_VERSION", "0.1.0")
	return &Config{
		Port:    envInt("LEXGATE_PORT", 8080),
		Version: version,
		Telemetry: TelemetryConfig{
			Enabled:        envBool("OTEL_ENABLED", false),
			OTLPEndpoint:   envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:    envStr("OTEL_SERVICE_NAME", "lexgate"),
			ServiceVersion: version,
		},
		Router: RouterConfig{
			HealthCheckInterval: envDuration("LEXGATE_HEALTH_CHECK_INTERVAL", 5*time.Minute),
			QuotaCooldown:       envDuration("LEXGATE_QUOTA_COOLDOWN", 15*time.Minute),
			LowLatencyProvider:  envStr("LEXGATE_LOW_LATENCY_PROVIDER", ""),
			EmbeddingProvider:   envStr("LEXGATE_EMBEDDING_PROVIDER", ""),
			AuditLogSize:        envInt("LEXGATE_AUDIT_LOG_SIZE", 512),
		},
		Providers: providers,
	}, nil
}

func loadProviders() ([]Provider, error) {
	raw := os.Getenv("LEXGATE_PROVIDERS")
	if path := os.Getenv("LEXGATE_PROVIDERS_FILE"); raw == "" && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read providers file: %w", err)
		}
		raw = string(data)
	}
	if raw == "" {
		return nil, nil
	}

	var providers []Provider
	if err := json.Unmarshal([]byte(raw), &providers); err != nil {
		return nil, fmt.Errorf("parse provider config: %w", err)
	}
	return providers, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
