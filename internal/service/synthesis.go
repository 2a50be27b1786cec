package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"github.com/mpaguilar/msa-toy/internal/llm"
	"go.uber.org/zap"
)

const (
	NoInformationAnswer = "Unable to synthesize an answer: No information was gathered."
	noRelevantNarrative = "No relevant information was found to answer the question."
)

// SynthesisEngine turns the evidence store into the final answer text. When
// a completion client is set it asks the LLM for a reasoned answer first and
// falls back to a plain narrative on any failure.
type SynthesisEngine struct {
	scorer *ConfidenceScorer
	client domain.LLMClient
	logger *zap.Logger
}

// NewSynthesisEngine creates an engine. client may be nil.
func NewSynthesisEngine(scorer *ConfidenceScorer, client domain.LLMClient, logger *zap.Logger) *SynthesisEngine {
	return &SynthesisEngine{scorer: scorer, client: client, logger: logger}
}

// Synthesize never fails; every error path degrades to text.
func (e *SynthesisEngine) Synthesize(ctx context.Context, store *EvidenceStore, query string) string {
	facts := store.Facts()
	if len(facts) == 0 {
		e.logger.Debug("no facts available for synthesis")
		return NoInformationAnswer
	}
	facts = e.EliminateRedundancy(facts)

	if e.client != nil {
		answer, err := e.FinalReasoning(ctx, store, facts, query)
		if err == nil {
			return answer
		}
		e.logger.Warn("final reasoning failed, using narrative", zap.Error(err))
	}

	return e.narrativeAnswer(store, facts, query)
}

// EliminateRedundancy returns facts unchanged.
func (e *SynthesisEngine) EliminateRedundancy(facts []domain.Fact) []domain.Fact {
	return facts
}

// FinalReasoning asks the completion client for a structured answer.
func (e *SynthesisEngine) FinalReasoning(ctx context.Context, store *EvidenceStore, facts []domain.Fact, query string) (string, error) {
	collected, err := factsJSON(facts)
	if err != nil {
		return "", err
	}

	resp, err := e.client.Call(ctx, fmt.Sprintf(llm.FinalSynthesisPrompt, query, collected), llm.SynthesisSchema)
	if err != nil {
		return "", fmt.Errorf("final synthesis call: %w", err)
	}
	answer, err := llm.Decode[domain.SynthesizedAnswer](resp)
	if err != nil {
		return "", err
	}
	if err := answer.Validate(); err != nil {
		return "", fmt.Errorf("invalid synthesized answer: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("## Answer\n")
	sb.WriteString(answer.Answer)
	if len(answer.ReasoningSteps) > 0 {
		sb.WriteString("\n\n## Reasoning Steps\n")
		for i, step := range answer.ReasoningSteps {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "%d. %s", i+1, step)
		}
	}
	sb.WriteString("\n\n## Confidence Report\n")
	sb.WriteString(e.scorer.Report(e.scorer.Score(store, query)))
	if citations := e.Citations(facts); citations != "" {
		sb.WriteString("\n\n")
		sb.WriteString(citations)
	}
	return sb.String(), nil
}

func (e *SynthesisEngine) narrativeAnswer(store *EvidenceStore, facts []domain.Fact, query string) string {
	parts := []string{
		"## Answer\n" + e.Narrative(facts),
		"## Confidence Report\n" + e.scorer.Report(e.scorer.Score(store, query)),
	}
	if citations := e.Citations(facts); citations != "" {
		parts = append(parts, citations)
	}
	return strings.Join(parts, "\n\n")
}

// Narrative renders facts as a bullet list.
func (e *SynthesisEngine) Narrative(facts []domain.Fact) string {
	if len(facts) == 0 {
		return noRelevantNarrative
	}
	lines := make([]string, 0, len(facts)+1)
	lines = append(lines, "Based on the information gathered:")
	for _, f := range facts {
		lines = append(lines, "- "+f.Content)
	}
	return strings.Join(lines, "\n")
}

// Citations lists each fact's source and retrieval time under a Sources
// heading. It is empty when no fact has a source.
func (e *SynthesisEngine) Citations(facts []domain.Fact) string {
	lines := []string{"## Sources:"}
	for i, f := range facts {
		if f.Source == "" {
			continue
		}
		line := fmt.Sprintf("%d. %s", i+1, f.Source)
		if !f.Timestamp.IsZero() {
			line += fmt.Sprintf(" (Retrieved: %s)", f.Timestamp.Format(time.RFC3339))
		}
		lines = append(lines, line)
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func factsJSON(facts []domain.Fact) (string, error) {
	out := make([]domain.FactSummary, 0, len(facts))
	for _, f := range facts {
		out = append(out, domain.FactSummary{ID: f.ID, Content: f.Content, Source: f.Source, Confidence: f.Confidence})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal facts: %w", err)
	}
	return string(data), nil
}
