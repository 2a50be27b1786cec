package llm

import (
	"context"
	"sync"

	"github.com/mpaguilar/msa-toy/internal/domain"
)

// MockCall records one Call made against a MockClient.
type MockCall struct {
	Prompt string
	Schema *domain.Schema
}

// MockClient is a scripted LLM client for testing. Responses are handed out
// in order; once they run out the last one repeats. When no responses are
// scripted, Call returns DefaultResponse.
type MockClient struct {
	Responses       []*domain.LLMResponse
	Errors          []error
	DefaultResponse *domain.LLMResponse

	// Respond, when set, takes precedence over the scripted lists.
	Respond func(prompt string, schema *domain.Schema) (*domain.LLMResponse, error)

	mu    sync.Mutex
	Calls []MockCall
}

func NewMockClient() *MockClient {
	return &MockClient{
		DefaultResponse: &domain.LLMResponse{Content: "Mock response"},
	}
}

func (c *MockClient) Call(ctx context.Context, prompt string, schema *domain.Schema) (*domain.LLMResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := len(c.Calls)
	c.Calls = append(c.Calls, MockCall{Prompt: prompt, Schema: schema})

	if c.Respond != nil {
		return c.Respond(prompt, schema)
	}
	if idx < len(c.Errors) && c.Errors[idx] != nil {
		return nil, c.Errors[idx]
	}
	if len(c.Responses) > 0 {
		if idx >= len(c.Responses) {
			idx = len(c.Responses) - 1
		}
		return c.Responses[idx], nil
	}
	return c.DefaultResponse, nil
}

func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Reset clears recorded calls and scripted replies.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses = nil
	c.Errors = nil
	c.Respond = nil
	c.DefaultResponse = &domain.LLMResponse{Content: "Mock response"}
	c.Calls = nil
}
