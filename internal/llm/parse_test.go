package llm

import (
	"errors"
	"testing"

	"github.com/mpaguilar/msa-toy/internal/domain"
)

func TestDecode_TypedFirst(t *testing.T) {
	resp := &domain.LLMResponse{
		Typed:      domain.ActionDecision{ActionType: domain.ActionTypeStop, Confidence: 0.9},
		Structured: map[string]any{"action_type": "tool"},
		Content:    `{"action_type": "plan"}`,
	}

	got, err := Decode[domain.ActionDecision](resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ActionType != domain.ActionTypeStop {
		t.Fatalf("expected typed value to win, got %q", got.ActionType)
	}
}

func TestDecode_TypedPointer(t *testing.T) {
	resp := &domain.LLMResponse{Typed: &domain.CompletionDecision{IsComplete: true, Answer: "42"}}

	got, err := Decode[domain.CompletionDecision](resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsComplete || got.Answer != "42" {
		t.Fatalf("expected pointer payload, got %+v", got)
	}
}

func TestDecode_StructuredBeforeContent(t *testing.T) {
	resp := &domain.LLMResponse{
		Structured: map[string]any{
			"action_type": "tool",
			"action_name": "web_search",
			"reasoning":   "need facts",
			"confidence":  1,
		},
		Content: `{"action_type": "stop"}`,
	}

	got, err := Decode[domain.ActionDecision](resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ActionType != domain.ActionTypeTool || got.ActionName != "web_search" {
		t.Fatalf("expected structured decision, got %+v", got)
	}
	if got.Confidence != 1.0 {
		t.Fatalf("expected integer confidence to decode as 1.0, got %v", got.Confidence)
	}
}

func TestDecode_FencedContent(t *testing.T) {
	resp := &domain.LLMResponse{
		Content: "Here you go:\n```json\n{\"is_complete\": true, \"answer\": \"Austin\", \"confidence\": 0.8, \"reasoning\": \"found\", \"remaining_tasks\": []}\n```",
	}

	got, err := Decode[domain.CompletionDecision](resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Answer != "Austin" || got.Confidence != 0.8 {
		t.Fatalf("unexpected decision: %+v", got)
	}
}

func TestDecode_BareObjectInProse(t *testing.T) {
	resp := &domain.LLMResponse{
		Content: `I think {"answer": "yes", "reasoning_steps": ["a", "b"], "confidence": 0.6} is right.`,
	}

	got, err := Decode[domain.SynthesizedAnswer](resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Answer != "yes" || len(got.ReasoningSteps) != 2 {
		t.Fatalf("unexpected answer: %+v", got)
	}
}

func TestDecode_NoJSON(t *testing.T) {
	cases := []*domain.LLMResponse{
		nil,
		{},
		{Content: "no structure here"},
	}
	for _, resp := range cases {
		_, err := Decode[domain.ActionDecision](resp)
		if !errors.Is(err, domain.ErrNoStructuredOutput) {
			t.Fatalf("expected ErrNoStructuredOutput, got %v", err)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`, true},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"fence without tag", "```\n{\"a\": 2}\n```", `{"a": 2}`, true},
		{"embedded", `prefix {"a": {"b": 1}} suffix`, `{"a": {"b": 1}}`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"invalid", `{not json}`, "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("expected (%q, %v), got (%q, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}
