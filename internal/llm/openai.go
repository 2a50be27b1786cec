package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/mpaguilar/msa-toy/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultAPIBase     = "https://openrouter.ai/api/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = float32(0.7)
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIClient(apiKey, apiBase, model string, temperature float32) *OpenAIClient {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if model == "" {
		model = DefaultModel
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(apiBase, "/")

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}
}

func (c *OpenAIClient) Call(ctx context.Context, prompt string, schema *domain.Schema) (*domain.LLMResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: withSchema(prompt, schema)},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	out := &domain.LLMResponse{
		Content: content,
		Metadata: map[string]any{
			"model":             resp.Model,
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
		},
	}
	if schema != nil {
		out.Structured = structuredFromContent(content)
	}
	return out, nil
}
