package service

import (
	"fmt"
	"strings"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultSourceWeight        = 0.4
	DefaultTemporalWeight      = 0.2
	DefaultCrossSourceWeight   = 0.2
	DefaultCompletenessWeight  = 0.2
	DefaultTemporalConsistency = 0.9
	DefaultCrossSourceScore    = 0.85
	CompleteFactCount          = 5
)

// Source types recognised by the keyword classifier.
const (
	SourcePeerReviewed = "peer_reviewed"
	SourceGovernment   = "government"
	SourceNews         = "news_organization"
	SourceWikipedia    = "wikipedia"
	SourceEducational  = "educational"
	SourceBlog         = "blog"
	SourceSocialMedia  = "social_media"
	SourceUnknown      = "unknown"
)

var sourceTypeWeights = map[string]float64{
	SourcePeerReviewed: 1.0,
	SourceGovernment:   0.95,
	SourceNews:         0.9,
	SourceWikipedia:    0.85,
	SourceEducational:  0.8,
	SourceBlog:         0.6,
	SourceSocialMedia:  0.4,
	SourceUnknown:      0.5,
}

// SourceClassifier maps a source name to a source type.
type SourceClassifier interface {
	Classify(source string) string
}

type keywordRule struct {
	keyword    string
	sourceType string
}

// KeywordClassifier matches lower-cased source names against an ordered
// keyword table; the first hit wins.
type KeywordClassifier struct {
	rules []keywordRule
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: []keywordRule{
		{"wikipedia", SourceWikipedia},
		{"wiki", SourceWikipedia},
		{"gov", SourceGovernment},
		{"edu", SourceEducational},
		{"news", SourceNews},
	}}
}

func (c *KeywordClassifier) Classify(source string) string {
	lower := strings.ToLower(source)
	for _, r := range c.rules {
		if strings.Contains(lower, r.keyword) {
			return r.sourceType
		}
	}
	return SourceUnknown
}

// ConfidenceScores are percentages in [0, 100].
type ConfidenceScores struct {
	Overall                float64 `json:"overall_confidence"`
	SourceCredibility      float64 `json:"source_credibility"`
	TemporalConsistency    float64 `json:"temporal_consistency"`
	CrossSourceConsistency float64 `json:"cross_source_consistency"`
	Completeness           float64 `json:"completeness"`
}

type ConfidenceScorer struct {
	classifier SourceClassifier
	logger     *zap.Logger

	SourceWeight       float64
	TemporalWeight     float64
	CrossSourceWeight  float64
	CompletenessWeight float64
}

func NewConfidenceScorer(logger *zap.Logger) *ConfidenceScorer {
	return &ConfidenceScorer{
		classifier:         NewKeywordClassifier(),
		logger:             logger,
		SourceWeight:       DefaultSourceWeight,
		TemporalWeight:     DefaultTemporalWeight,
		CrossSourceWeight:  DefaultCrossSourceWeight,
		CompletenessWeight: DefaultCompletenessWeight,
	}
}

// WithClassifier swaps the source classifier.
func (s *ConfidenceScorer) WithClassifier(c SourceClassifier) *ConfidenceScorer {
	s.classifier = c
	return s
}

// SourceCredibility returns the weight of the source's type.
func (s *ConfidenceScorer) SourceCredibility(source string) float64 {
	if w, ok := sourceTypeWeights[s.classifier.Classify(source)]; ok {
		return w
	}
	return sourceTypeWeights[SourceUnknown]
}

func (s *ConfidenceScorer) TemporalConsistency(facts []domain.Fact) float64 {
	return DefaultTemporalConsistency
}

// CrossSourceConsistency is perfect for fewer than two facts.
func (s *ConfidenceScorer) CrossSourceConsistency(facts []domain.Fact) float64 {
	if len(facts) < 2 {
		return 1.0
	}
	return DefaultCrossSourceScore
}

func (s *ConfidenceScorer) Completeness(facts []domain.Fact, query string) float64 {
	return min(1.0, float64(len(facts))/CompleteFactCount)
}

// Score rates the evidence in store. All scores are zero without facts.
func (s *ConfidenceScorer) Score(store *EvidenceStore, query string) ConfidenceScores {
	facts := store.Facts()
	if len(facts) == 0 {
		return ConfidenceScores{}
	}

	var credSum float64
	for _, f := range facts {
		name := domain.UnknownSource
		if rec, ok := store.Source(f.Source); ok && rec.ID != "" {
			name = rec.ID
		}
		credSum += s.SourceCredibility(name)
	}
	cred := credSum / float64(len(facts))
	temporal := s.TemporalConsistency(facts)
	cross := s.CrossSourceConsistency(facts)
	completeness := s.Completeness(facts, query)

	overall := cred*s.SourceWeight + temporal*s.TemporalWeight + cross*s.CrossSourceWeight + completeness*s.CompletenessWeight

	scores := ConfidenceScores{
		Overall:                overall * 100,
		SourceCredibility:      cred * 100,
		TemporalConsistency:    temporal * 100,
		CrossSourceConsistency: cross * 100,
		Completeness:           completeness * 100,
	}
	s.logger.Debug("confidence scored",
		zap.Int("facts", len(facts)),
		zap.Float64("overall", scores.Overall),
	)
	return scores
}

func (s *ConfidenceScorer) Report(scores ConfidenceScores) string {
	return fmt.Sprintf(`Confidence Report:
- Overall Confidence: %.1f%%
- Source Credibility: %.1f%%
- Temporal Consistency: %.1f%%
- Cross-Source Consistency: %.1f%%
- Completeness: %.1f%%`,
		scores.Overall,
		scores.SourceCredibility,
		scores.TemporalConsistency,
		scores.CrossSourceConsistency,
		scores.Completeness,
	)
}
