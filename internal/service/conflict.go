package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

const (
	ConflictTypeContradiction = "contradiction"
	investigationNote         = "Investigation would use additional tools to gather context"
	uncertaintyDisclaimer     = "\nNote: There are conflicting claims in the information gathered. " +
		"The confidence scores above indicate our assessment of reliability, " +
		"but you should verify critical information from authoritative sources."
)

// antonymPairs match across a pair of facts in either order.
var antonymPairs = [][2]string{
	{"is true", "is false"},
	{"did happen", "did not happen"},
	{"does exist", "does not exist"},
	{"is correct", "is incorrect"},
	{"is round", "is flat"},
	{"is flat", "is round"},
}

type Conflict struct {
	Fact1       domain.Fact `json:"fact1"`
	Fact2       domain.Fact `json:"fact2"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
}

type Investigation struct {
	Conflict      Conflict `json:"conflict"`
	Investigation string   `json:"investigation"`
	Sources       []string `json:"sources"`
}

type Resolution struct {
	Preferred domain.Fact `json:"preferred_fact"`
	Rejected  domain.Fact `json:"rejected_fact"`
	Reasoning string      `json:"reasoning"`
}

type ConflictResolver struct {
	logger *zap.Logger
}

func NewConflictResolver(logger *zap.Logger) *ConflictResolver {
	return &ConflictResolver{logger: logger}
}

// DetectConflicts compares every pair of facts once, in insertion order.
func (r *ConflictResolver) DetectConflicts(store *EvidenceStore) []Conflict {
	facts := store.Facts()
	var conflicts []Conflict
	for i := 0; i < len(facts); i++ {
		for j := i + 1; j < len(facts); j++ {
			if !contradictory(facts[i].Content, facts[j].Content) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Fact1:       facts[i],
				Fact2:       facts[j],
				Type:        ConflictTypeContradiction,
				Description: fmt.Sprintf("Contradiction between '%s' and '%s'", facts[i].Content, facts[j].Content),
			})
		}
	}
	if len(conflicts) > 0 {
		r.logger.Debug("conflicts detected", zap.Int("count", len(conflicts)))
	}
	return conflicts
}

func contradictory(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for _, p := range antonymPairs {
		if (strings.Contains(a, p[0]) && strings.Contains(b, p[1])) ||
			(strings.Contains(b, p[0]) && strings.Contains(a, p[1])) {
			return true
		}
	}
	if strings.Contains(a, "round") && strings.Contains(b, "flat") {
		return true
	}
	if strings.Contains(a, "flat") && strings.Contains(b, "round") {
		return true
	}
	return false
}

func (r *ConflictResolver) InvestigateConflicts(conflicts []Conflict) []Investigation {
	out := make([]Investigation, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, Investigation{
			Conflict:      c,
			Investigation: investigationNote,
			Sources:       []string{c.Fact1.Source, c.Fact2.Source},
		})
	}
	return out
}

// ResolveConflicts prefers the more confident fact; ties keep the first.
func (r *ConflictResolver) ResolveConflicts(investigations []Investigation) []Resolution {
	out := make([]Resolution, 0, len(investigations))
	for _, inv := range investigations {
		f1, f2 := inv.Conflict.Fact1, inv.Conflict.Fact2
		var res Resolution
		switch {
		case f1.Confidence > f2.Confidence:
			res = Resolution{
				Preferred: f1,
				Rejected:  f2,
				Reasoning: fmt.Sprintf("Fact 1 has higher confidence (%s) than Fact 2 (%s)", formatConfidence(f1.Confidence), formatConfidence(f2.Confidence)),
			}
		case f2.Confidence > f1.Confidence:
			res = Resolution{
				Preferred: f2,
				Rejected:  f1,
				Reasoning: fmt.Sprintf("Fact 2 has higher confidence (%s) than Fact 1 (%s)", formatConfidence(f2.Confidence), formatConfidence(f1.Confidence)),
			}
		default:
			res = Resolution{
				Preferred: f1,
				Rejected:  f2,
				Reasoning: "Facts have equal confidence, keeping first encountered",
			}
		}
		out = append(out, res)
	}
	return out
}

// SynthesizeWithUncertainty lists facts with their confidence and appends a
// disclaimer when conflicts exist.
func (r *ConflictResolver) SynthesizeWithUncertainty(facts []domain.Fact, conflicts []Conflict) string {
	if len(facts) == 0 {
		return "No facts available to synthesize."
	}

	var sb strings.Builder
	sb.WriteString("Based on the available information:\n\n")
	for _, f := range facts {
		fmt.Fprintf(&sb, "- %s (confidence: %s)\n", f.Content, formatConfidence(f.Confidence))
	}
	if len(conflicts) > 0 {
		sb.WriteString(uncertaintyDisclaimer)
	}
	return sb.String()
}

// formatConfidence prints the shortest decimal that round-trips, keeping a
// trailing ".0" for whole numbers.
func formatConfidence(c float64) string {
	s := strconv.FormatFloat(c, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
