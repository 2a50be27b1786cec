package service

import (
	"strings"

	"github.com/mpaguilar/msa-toy/internal/domain"
)

const (
	CoverageWeight    = 0.5
	DiversityWeight   = 0.3
	DensityWeight     = 0.2
	DensitySaturation = 5.0
)

type CompletenessReport struct {
	Score           float64  `json:"completeness_score"`
	TopicCoverage   float64  `json:"coverage_ratio"`
	SourceDiversity float64  `json:"fact_diversity"`
	FactDensity     float64  `json:"information_density"`
	CoveredTopics   []string `json:"covered_topics,omitempty"`
}

// AssessCompleteness rates how well facts cover the expected topics. A topic
// is covered when some fact's content mentions it.
func AssessCompleteness(facts []domain.Fact, topics []string) CompletenessReport {
	if len(topics) == 0 {
		diversity := 0.0
		if len(facts) > 0 {
			diversity = 1.0
		}
		return CompletenessReport{
			Score:           1.0,
			TopicCoverage:   1.0,
			SourceDiversity: diversity,
			FactDensity:     float64(len(facts)),
		}
	}

	var covered []string
	for _, topic := range topics {
		t := strings.ToLower(topic)
		for _, f := range facts {
			if strings.Contains(strings.ToLower(f.Content), t) {
				covered = append(covered, topic)
				break
			}
		}
	}
	coverage := float64(len(covered)) / float64(len(topics))

	diversity := 0.0
	if len(facts) > 0 {
		counts := make(map[string]int)
		maxCount := 0
		for _, f := range facts {
			counts[f.Source]++
			if counts[f.Source] > maxCount {
				maxCount = counts[f.Source]
			}
		}
		diversity = 1 - float64(maxCount)/float64(len(facts))
	}

	density := float64(len(facts)) / float64(len(topics))
	score := CoverageWeight*coverage + DiversityWeight*diversity + DensityWeight*min(density/DensitySaturation, 1.0)

	return CompletenessReport{
		Score:           score,
		TopicCoverage:   coverage,
		SourceDiversity: diversity,
		FactDensity:     density,
		CoveredTopics:   covered,
	}
}
