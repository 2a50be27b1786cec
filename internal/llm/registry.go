package llm

import (
	"fmt"
	"sync"

	"github.com/mpaguilar/msa-toy/internal/config"
	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

// Endpoint names used by the controller phases.
const (
	EndpointThinking   = "quick-medium"
	EndpointAction     = "tool-big"
	EndpointCompletion = "quick-medium"
)

// Registry hands out one client per endpoint name, creating it on first use.
type Registry struct {
	cfg    config.LLMConfig
	keys   func(provider string) string
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]domain.LLMClient
}

func NewRegistry(cfg config.LLMConfig, logger *zap.Logger) *Registry {
	return &Registry{
		cfg:     cfg,
		keys:    apiKeyFor,
		logger:  logger,
		clients: make(map[string]domain.LLMClient),
	}
}

// Register installs a client under name, replacing any existing one.
func (r *Registry) Register(name string, client domain.LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
}

// Client returns the client for an endpoint name. Names missing from
// llm_config.yml fall back to the default OpenAI-compatible endpoint with the
// name as the model id.
func (r *Registry) Client(name string) (domain.LLMClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[name]; ok {
		return c, nil
	}

	endpoint, ok := r.cfg.Endpoint(name)
	if !ok {
		r.logger.Warn("endpoint not configured, using defaults", zap.String("endpoint", name))
		endpoint = config.Endpoint{Name: name, Provider: ProviderOpenAI, ModelID: name, APIBase: DefaultAPIBase}
	}

	c, err := NewClient(endpoint, r.keys(endpoint.Provider))
	if err != nil {
		return nil, fmt.Errorf("create client for %s: %w", name, err)
	}
	r.clients[name] = c
	r.logger.Debug("llm client created",
		zap.String("endpoint", name),
		zap.String("provider", endpoint.Provider),
		zap.String("model", endpoint.ModelID),
	)
	return c, nil
}

func apiKeyFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return config.AnthropicAPIKey()
	default:
		return config.LLMAPIKey()
	}
}
