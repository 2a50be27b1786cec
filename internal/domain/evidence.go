package domain

import (
	"time"
)

const (
	DefaultSourceCredibility = 0.5
	UnknownSource            = "unknown"
)

type Fact struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

type SourceRecord struct {
	ID          string    `json:"id"`
	URL         string    `json:"url,omitempty"`
	Credibility float64   `json:"credibility"`
	RetrievedAt time.Time `json:"retrieval_date"`
}

type Predicate string

const (
	PredicateBefore Predicate = "before"
	PredicateAfter  Predicate = "after"
	PredicateCausal Predicate = "causal"
)

type Relationship struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Predicate  Predicate `json:"predicate"`
	Object     string    `json:"object"`
	Confidence float64   `json:"confidence"`
	Indicator  string    `json:"indicator,omitempty"`
}

type QueryRefinement struct {
	Original string `json:"original"`
	Refined  string `json:"refined"`
	Reason   string `json:"reason"`
}

type QueryState struct {
	OriginalQuery  string            `json:"original_query"`
	RefinedQueries []string          `json:"refined_queries"`
	QueryHistory   []QueryRefinement `json:"query_history"`
	CurrentFocus   string            `json:"current_focus"`
}

type ActionRecord struct {
	ActionType string         `json:"action_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Parameters map[string]any `json:"parameters"`
	Result     any            `json:"result,omitempty"`
}

type ToolCall struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	Timestamp  time.Time      `json:"timestamp"`
}

type ToolResult struct {
	ToolName     string         `json:"tool_name"`
	ResponseData map[string]any `json:"response_data"`
	Timestamp    time.Time      `json:"timestamp"`
	Metadata     map[string]any `json:"metadata"`
}

type ExecutionHistory struct {
	ActionsTaken        []ActionRecord       `json:"actions_taken"`
	Timestamps          map[string]time.Time `json:"timestamps"`
	ToolCallSequence    []ToolCall           `json:"tool_call_sequence"`
	IntermediateResults []ToolResult         `json:"intermediate_results"`
}

// TemporalContext is derived from the fact timestamps by relationship
// inference. It is never serialized.
type TemporalContext struct {
	EarliestTimestamp *time.Time
	LatestTimestamp   *time.Time
	OrderedFactIDs    []string
}

type ReasoningState struct {
	CurrentHypothesis      string           `json:"current_hypothesis"`
	AnswerDraft            string           `json:"answer_draft"`
	InformationGaps        []string         `json:"information_gaps"`
	NextSteps              []string         `json:"next_steps"`
	TerminationCriteriaMet bool             `json:"termination_criteria_met"`
	TemporalContext        *TemporalContext `json:"-"`
}

type InformationStore struct {
	Facts            map[string]Fact         `json:"facts"`
	Relationships    map[string]Relationship `json:"relationships"`
	Sources          map[string]SourceRecord `json:"sources"`
	ConfidenceScores map[string]float64      `json:"confidence_scores"`
}

// Snapshot is the persisted shape of an evidence store.
type Snapshot struct {
	QueryState       QueryState       `json:"query_state"`
	ExecutionHistory ExecutionHistory `json:"execution_history"`
	InformationStore InformationStore `json:"information_store"`
	ReasoningState   ReasoningState   `json:"reasoning_state"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// FactSummary is the prompt-facing view of a fact.
type FactSummary struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// StateSummary is the bounded view of the evidence store handed to the LLM.
type StateSummary struct {
	Query             string        `json:"query"`
	CurrentFocus      string        `json:"current_focus"`
	CurrentHypothesis string        `json:"current_hypothesis"`
	AnswerDraft       string        `json:"answer_draft"`
	InformationGaps   []string      `json:"information_gaps"`
	NextSteps         []string      `json:"next_steps"`
	TopFacts          []FactSummary `json:"top_facts"`
	FactCount         int           `json:"fact_count"`
	SourceCount       int           `json:"source_count"`
	RelationshipCount int           `json:"relationship_count"`
}

func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
