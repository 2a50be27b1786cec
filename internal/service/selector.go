package service

import (
	"strings"

	"go.uber.org/zap"
)

// Query intents, checked in this order.
const (
	IntentFactual    = "factual"
	IntentAnalytical = "analytical"
	IntentCoding     = "coding"
	IntentCreative   = "creative"
	IntentGeneral    = "general"
)

// Capability names the selector has keyword tables and costs for.
const (
	ToolWebSearch = "web_search"
	ToolWikipedia = "wikipedia"
)

const (
	DefaultRelevance        = 0.5
	HighConfidenceThreshold = 0.8
	HighConfidenceDamping   = 0.5
	ConflictBoost           = 1.2
	DefaultToolCost         = 0.005
	TypicalQueryWords       = 20.0
	CostValueFactor         = 100
)

var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{IntentFactual, []string{"what is", "who is", "when", "where", "how many", "how much"}},
	{IntentAnalytical, []string{"analyze", "compare", "explain", "why"}},
	{IntentCoding, []string{"code", "program", "function", "script"}},
	{IntentCreative, []string{"write", "create", "generate", "story", "poem"}},
}

var toolCosts = map[string]float64{
	ToolWebSearch: 0.01,
	ToolWikipedia: 0.001,
}

// fact-checking capabilities get boosted when conflicts exist
var factCheckers = map[string]bool{
	ToolWebSearch: true,
	ToolWikipedia: true,
}

// RelevanceStrategy scores how well a capability fits a query, in [0, 1].
type RelevanceStrategy interface {
	Relevance(query, tool string) float64
}

// KeywordRelevance scores a tool by the fraction of its keywords found in
// the lower-cased query. Tools without a table score DefaultRelevance.
type KeywordRelevance struct {
	tables map[string][]string
}

func NewKeywordRelevance() *KeywordRelevance {
	return &KeywordRelevance{tables: map[string][]string{
		ToolWebSearch: {"current", "latest", "news", "today", "recent", "2024", "2025", "price", "weather"},
		ToolWikipedia: {"what is", "who is", "history", "definition", "meaning", "origin", "invent", "discover"},
	}}
}

func (k *KeywordRelevance) Relevance(query, tool string) float64 {
	keywords, ok := k.tables[tool]
	if !ok || len(keywords) == 0 {
		return DefaultRelevance
	}
	lower := strings.ToLower(query)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

type CostBenefit struct {
	EstimatedCost float64 `json:"estimated_cost"`
	ExpectedValue float64 `json:"expected_value"`
	Recommended   bool    `json:"recommended"`
}

// ToolSelector picks the next capability from an ordered list of names.
type ToolSelector struct {
	tools     []string
	strategy  RelevanceStrategy
	scorer    *ConfidenceScorer
	conflicts *ConflictResolver
	logger    *zap.Logger
}

func NewToolSelector(tools []string, scorer *ConfidenceScorer, conflicts *ConflictResolver, logger *zap.Logger) *ToolSelector {
	return &ToolSelector{
		tools:     append([]string(nil), tools...),
		strategy:  NewKeywordRelevance(),
		scorer:    scorer,
		conflicts: conflicts,
		logger:    logger,
	}
}

// WithStrategy swaps the relevance strategy.
func (t *ToolSelector) WithStrategy(s RelevanceStrategy) *ToolSelector {
	t.strategy = s
	return t
}

func (t *ToolSelector) Tools() []string {
	return append([]string(nil), t.tools...)
}

func (t *ToolSelector) ClassifyIntent(query string) string {
	lower := strings.ToLower(query)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}

func (t *ToolSelector) ScoreRelevance(query, tool string) float64 {
	return max(0.0, min(1.0, t.strategy.Relevance(query, tool)))
}

// SelectTool returns the most relevant tool, the first registered one on a
// tie, or "" when no tools are registered.
func (t *ToolSelector) SelectTool(query string, store *EvidenceStore) string {
	if len(t.tools) == 0 {
		return ""
	}

	hasConflicts := len(t.conflicts.DetectConflicts(store)) > 0
	highConfidence := false
	if store.FactCount() > 0 {
		highConfidence = t.scorer.Score(store, query).Overall/100 > HighConfidenceThreshold
	}

	best, bestScore := "", -1.0
	for _, name := range t.tools {
		score := t.ScoreRelevance(query, name)
		if highConfidence {
			score *= HighConfidenceDamping
		}
		if hasConflicts && factCheckers[name] {
			score *= ConflictBoost
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}

	t.logger.Debug("tool selected", zap.String("tool", best), zap.Float64("score", bestScore))
	return best
}

// AnalyzeCostBenefit weighs a tool's fixed cost against the expected value
// of another lookup, which shrinks as confidence grows.
func (t *ToolSelector) AnalyzeCostBenefit(tool, query string, store *EvidenceStore) CostBenefit {
	cost, ok := toolCosts[tool]
	if !ok {
		cost = DefaultToolCost
	}

	value := min(1.0, float64(len(strings.Fields(query)))/TypicalQueryWords)
	if store.FactCount() > 0 {
		value *= 1 - t.scorer.Score(store, query).Overall/100
	}

	return CostBenefit{
		EstimatedCost: cost,
		ExpectedValue: value,
		Recommended:   value > cost*CostValueFactor,
	}
}
