package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mpaguilar/msa-toy/internal/domain"
)

func TestOpenAIClient_CallWithSchema(t *testing.T) {
	var gotPrompt, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		if len(req.Messages) > 0 {
			gotPrompt = req.Messages[0].Content
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "x", "object": "chat.completion", "model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "` +
			"```json\\n{\\\"action_type\\\": \\\"stop\\\", \\\"action_name\\\": \\\"\\\", \\\"reasoning\\\": \\\"done\\\", \\\"confidence\\\": 0.9}\\n```" +
			`"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", srv.URL, "test-model", 0)
	resp, err := c.Call(context.Background(), "pick an action", ActionSchema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotModel != "test-model" {
		t.Fatalf("expected model test-model, got %q", gotModel)
	}
	if !strings.Contains(gotPrompt, ActionSchema.Instructions) {
		t.Fatalf("expected schema instructions in prompt, got %q", gotPrompt)
	}
	if resp.Structured["action_type"] != "stop" {
		t.Fatalf("expected structured action_type stop, got %v", resp.Structured)
	}

	decision, err := Decode[domain.ActionDecision](resp)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if decision.ActionType != domain.ActionTypeStop {
		t.Fatalf("expected stop, got %q", decision.ActionType)
	}
}

func TestOpenAIClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "down"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", srv.URL, "m", 0)
	if _, err := c.Call(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected error from failing server")
	}
}

func TestAnthropicClient_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("expected api key header")
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("expected version header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "claude", "content": [{"type": "text", "text": "  plain answer  "}], "usage": {"input_tokens": 3, "output_tokens": 2}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("secret", srv.URL, "", 0)
	resp, err := c.Call(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "plain answer" {
		t.Fatalf("expected trimmed content, got %q", resp.Content)
	}
	if resp.Structured != nil {
		t.Fatalf("expected no structured output without schema")
	}
}

func TestAnthropicClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit", "message": "slow down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("secret", srv.URL, "", 0)
	_, err := c.Call(context.Background(), "hello", nil)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}
