// Package server provides the public entry point for initializing the
// LexGate gateway.
//
// It exists in pkg/ (not internal/) so that embedding applications can
// import it and compose the gateway into a larger backend:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lexgate/lexgate/internal/api"
	"github.com/lexgate/lexgate/internal/api/handlers"
	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/config"
	"github.com/lexgate/lexgate/internal/providers"
	"github.com/lexgate/lexgate/internal/router"
	"github.com/lexgate/lexgate/internal/telemetry"
)

// Server holds the initialized LexGate gateway.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Router is the provider router, exposed so embedding applications
	// can call Process/ProcessBatch directly.
	Router *router.Router

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush
	// telemetry.
	ShutdownFunc func(context.Context) error
}

// New loads configuration from the environment and initializes all
// gateway components.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the gateway with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	auditLog := audit.NewLog(cfg.Router.AuditLogSize)

	rt := router.New(router.Options{
		LowLatencyProvider:  cfg.Router.LowLatencyProvider,
		EmbeddingProvider:   cfg.Router.EmbeddingProvider,
		HealthCheckInterval: cfg.Router.HealthCheckInterval,
		QuotaCooldown:       cfg.Router.QuotaCooldown,
		Audit:               auditLog,
	})

	for _, p := range cfg.Providers {
		adapter, err := buildAdapter(p)
		if err != nil {
			return nil, err
		}
		if err := rt.Register(descriptorFor(p), adapter); err != nil {
			return nil, err
		}
	}
	log.Info().Int("providers", len(cfg.Providers)).Msg("Router initialized")

	h := handlers.New(rt, auditLog)
	apiRouter := api.NewRouter(cfg, h)

	return &Server{
		Handler:      apiRouter,
		Router:       rt,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// buildAdapter maps a provider declaration to a concrete adapter.
func buildAdapter(p config.Provider) (router.Adapter, error) {
	var opts []providers.OpenAIOption
	if p.Endpoint != "" {
		opts = append(opts, providers.WithEndpoint(p.Endpoint))
	}

	switch p.Kind {
	case "openai", "openai-compatible", "ollama":
		return providers.NewOpenAI(p.Name, p.Model, opts...), nil
	case "azure-openai":
		return providers.NewOpenAI(p.Name, p.Model, append(opts, providers.WithAzureAuth())...), nil
	case "anthropic":
		var aopts []providers.AnthropicOption
		if p.Endpoint != "" {
			aopts = append(aopts, providers.WithAnthropicEndpoint(p.Endpoint))
		}
		return providers.NewAnthropic(p.Name, p.Model, aopts...), nil
	case "openai-embeddings":
		return providers.NewOpenAIEmbeddings(p.Name, p.Model, opts...), nil
	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", p.Name, p.Kind)
	}
}

func descriptorFor(p config.Provider) router.ProviderConfig {
	return router.ProviderConfig{
		Name:                    p.Name,
		Tier:                    p.Tier,
		Enabled:                 p.Enabled,
		Credentials:             p.Credentials,
		MaxRequestsPerMinute:    p.MaxRequestsPerMinute,
		MaxTokensPerRequest:     p.MaxTokensPerRequest,
		Timeout:                 time.Duration(p.TimeoutSeconds) * time.Second,
		MaxRetryAttempts:        p.MaxRetryAttempts,
		CircuitFailureThreshold: p.CircuitFailureThreshold,
		CircuitResetTimeout:     time.Duration(p.CircuitResetSeconds) * time.Second,
		ClassifyRule:            p.ClassifyRule,
	}
}
