package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mpaguilar/msa-toy/internal/domain"
)

const (
	anthropicBaseURL   = "https://api.anthropic.com/v1"
	anthropicModel     = "claude-3-5-haiku-20241022"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 2048
)

type AnthropicClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	httpClient  *http.Client
}

func NewAnthropicClient(apiKey, apiBase, model string, temperature float32) *AnthropicClient {
	if apiBase == "" {
		apiBase = anthropicBaseURL
	}
	if model == "" {
		model = anthropicModel
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &AnthropicClient{
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(apiBase, "/"),
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Call(ctx context.Context, prompt string, schema *domain.Schema) (*domain.LLMResponse, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: c.temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: withSchema(prompt, schema)}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal anthropic response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("anthropic API error: %s", result.Error.Message)
	}
	if len(result.Content) == 0 {
		return nil, fmt.Errorf("anthropic API returned no content")
	}

	content := strings.TrimSpace(result.Content[0].Text)
	out := &domain.LLMResponse{
		Content: content,
		Metadata: map[string]any{
			"model":             result.Model,
			"prompt_tokens":     result.Usage.InputTokens,
			"completion_tokens": result.Usage.OutputTokens,
		},
	}
	if schema != nil {
		out.Structured = structuredFromContent(content)
	}
	return out, nil
}
