package service

import (
	"strings"
	"testing"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

func TestConflictResolver_RoundVersusFlat(t *testing.T) {
	r := NewConflictResolver(zap.NewNop())
	store, _ := newTestStore(0)
	store.AddObservation("The Earth is round", "a", 0.9, nil)
	store.AddObservation("The Earth is flat", "b", 0.3, nil)

	conflicts := r.DetectConflicts(store)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c.Type != ConflictTypeContradiction {
		t.Fatalf("expected contradiction, got %q", c.Type)
	}
	if c.Description != "Contradiction between 'The Earth is round' and 'The Earth is flat'" {
		t.Fatalf("unexpected description %q", c.Description)
	}

	investigations := r.InvestigateConflicts(conflicts)
	if len(investigations) != 1 || investigations[0].Investigation != investigationNote {
		t.Fatalf("unexpected investigations %+v", investigations)
	}
	if got := investigations[0].Sources; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected sources [a b], got %v", got)
	}

	resolutions := r.ResolveConflicts(investigations)
	if len(resolutions) != 1 {
		t.Fatalf("expected 1 resolution, got %d", len(resolutions))
	}
	res := resolutions[0]
	if res.Preferred.Confidence != 0.9 || res.Rejected.Confidence != 0.3 {
		t.Fatalf("expected the 0.9 fact preferred, got %+v", res)
	}
	if res.Reasoning != "Fact 1 has higher confidence (0.9) than Fact 2 (0.3)" {
		t.Fatalf("unexpected reasoning %q", res.Reasoning)
	}
}

func TestConflictResolver_SecondFactPreferred(t *testing.T) {
	r := NewConflictResolver(zap.NewNop())
	inv := []Investigation{{Conflict: Conflict{
		Fact1: domain.Fact{ID: "fact_1", Content: "it did happen", Confidence: 0.2},
		Fact2: domain.Fact{ID: "fact_2", Content: "it did not happen", Confidence: 1},
	}}}

	res := r.ResolveConflicts(inv)[0]
	if res.Preferred.ID != "fact_2" {
		t.Fatalf("expected fact_2 preferred, got %s", res.Preferred.ID)
	}
	if res.Reasoning != "Fact 2 has higher confidence (1.0) than Fact 1 (0.2)" {
		t.Fatalf("unexpected reasoning %q", res.Reasoning)
	}
}

func TestConflictResolver_EqualConfidenceKeepsFirst(t *testing.T) {
	r := NewConflictResolver(zap.NewNop())
	inv := []Investigation{{Conflict: Conflict{
		Fact1: domain.Fact{ID: "fact_1", Confidence: 0.5},
		Fact2: domain.Fact{ID: "fact_2", Confidence: 0.5},
	}}}

	res := r.ResolveConflicts(inv)[0]
	if res.Preferred.ID != "fact_1" || res.Reasoning != "Facts have equal confidence, keeping first encountered" {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestConflictResolver_NoConflicts(t *testing.T) {
	r := NewConflictResolver(zap.NewNop())
	store, _ := newTestStore(0)
	store.AddObservation("Austin is the capital", "a", 0.9, nil)
	store.AddObservation("Houston is the largest city", "b", 0.8, nil)

	if got := r.DetectConflicts(store); len(got) != 0 {
		t.Fatalf("expected no conflicts, got %+v", got)
	}
}

func TestConflictResolver_SynthesizeWithUncertainty(t *testing.T) {
	r := NewConflictResolver(zap.NewNop())
	facts := []domain.Fact{
		{Content: "The Earth is round", Confidence: 0.9},
		{Content: "The Earth is flat", Confidence: 0.3},
	}

	plain := r.SynthesizeWithUncertainty(facts, nil)
	if !strings.HasPrefix(plain, "Based on the available information:\n\n") {
		t.Fatalf("unexpected prefix: %q", plain)
	}
	if !strings.Contains(plain, "- The Earth is round (confidence: 0.9)\n") {
		t.Fatalf("expected fact line, got %q", plain)
	}
	if strings.Contains(plain, "conflicting claims") {
		t.Fatal("expected no disclaimer without conflicts")
	}

	withConflict := r.SynthesizeWithUncertainty(facts, []Conflict{{Fact1: facts[0], Fact2: facts[1]}})
	if !strings.HasSuffix(withConflict, uncertaintyDisclaimer) {
		t.Fatalf("expected disclaimer, got %q", withConflict)
	}

	if got := r.SynthesizeWithUncertainty(nil, nil); got != "No facts available to synthesize." {
		t.Fatalf("unexpected empty output %q", got)
	}
}
