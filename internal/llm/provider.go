package llm

import (
	"fmt"

	"github.com/mpaguilar/msa-toy/internal/config"
	"github.com/mpaguilar/msa-toy/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// NewClient creates an LLM client for an endpoint. An empty provider means
// openai, which covers every OpenAI-compatible api_base.
func NewClient(endpoint config.Endpoint, apiKey string) (domain.LLMClient, error) {
	switch endpoint.Provider {
	case "", ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for endpoint %s", endpoint.Name)
		}
		return NewOpenAIClient(apiKey, endpoint.APIBase, endpoint.ModelID, endpoint.Temperature), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for endpoint %s", endpoint.Name)
		}
		return NewAnthropicClient(apiKey, endpoint.APIBase, endpoint.ModelID, endpoint.Temperature), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("%w: %s (valid options: openai, anthropic, mock)", domain.ErrUnknownProvider, endpoint.Provider)
	}
}
