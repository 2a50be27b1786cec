package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

// Evidence store constants
const (
	DefaultMaxFacts       = 100
	PruneConfidenceWeight = 0.7
	PruneRecencyWeight    = 0.3
	RecencyWindow         = 24 * time.Hour
	TemporalRelationConf  = 0.8
	CausalRelationConf    = 0.6
	CausalWindow          = 24 * time.Hour
	SummaryTopFacts       = 10
	SummaryMaxListItems   = 5
	factIDPrefix          = "fact_"
)

var causalIndicators = []string{"because", "due to", "caused by", "leads to", "results in"}

// EvidenceStore is the working memory of one run. It is not safe for
// concurrent use; a Controller owns exactly one per Process call.
type EvidenceStore struct {
	maxFacts int
	logger   *zap.Logger
	now      func() time.Time

	query     domain.QueryState
	history   domain.ExecutionHistory
	info      domain.InformationStore
	reasoning domain.ReasoningState
	createdAt time.Time
	updatedAt time.Time

	order  []string
	nextID int
}

func NewEvidenceStore(query string, maxFacts int, logger *zap.Logger) *EvidenceStore {
	if maxFacts <= 0 {
		maxFacts = DefaultMaxFacts
	}
	s := &EvidenceStore{
		maxFacts: maxFacts,
		logger:   logger,
		now:      time.Now,
	}
	s.reset(query)
	return s
}

func (s *EvidenceStore) reset(query string) {
	now := s.now()
	s.query = domain.QueryState{
		OriginalQuery:  query,
		RefinedQueries: []string{},
		QueryHistory:   []domain.QueryRefinement{},
		CurrentFocus:   query,
	}
	s.history = domain.ExecutionHistory{
		ActionsTaken:        []domain.ActionRecord{},
		Timestamps:          map[string]time.Time{},
		ToolCallSequence:    []domain.ToolCall{},
		IntermediateResults: []domain.ToolResult{},
	}
	s.info = domain.InformationStore{
		Facts:            map[string]domain.Fact{},
		Relationships:    map[string]domain.Relationship{},
		Sources:          map[string]domain.SourceRecord{},
		ConfidenceScores: map[string]float64{},
	}
	s.reasoning = domain.ReasoningState{
		InformationGaps: []string{},
		NextSteps:       []string{},
	}
	s.createdAt = now
	s.updatedAt = now
	s.order = nil
	s.nextID = 0
}

func (s *EvidenceStore) touch() {
	s.updatedAt = s.now()
}

// AddObservation records a fact. The source gets a SourceRecord the first
// time it is seen; credibility is only read then. Exceeding the fact limit
// triggers PruneMemory.
func (s *EvidenceStore) AddObservation(content, source string, confidence float64, credibility *float64) domain.Fact {
	if source == "" {
		source = domain.UnknownSource
	}
	now := s.now()

	if _, ok := s.info.Sources[source]; !ok {
		cred := domain.DefaultSourceCredibility
		if credibility != nil {
			cred = domain.ClampConfidence(*credibility)
		}
		rec := domain.SourceRecord{ID: source, Credibility: cred, RetrievedAt: now}
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			rec.URL = source
		}
		s.info.Sources[source] = rec
	}

	s.nextID++
	fact := domain.Fact{
		ID:         factIDPrefix + strconv.Itoa(s.nextID),
		Content:    content,
		Source:     source,
		Timestamp:  now,
		Confidence: domain.ClampConfidence(confidence),
	}
	s.info.Facts[fact.ID] = fact
	s.info.ConfidenceScores[fact.ID] = fact.Confidence
	s.order = append(s.order, fact.ID)
	s.touch()

	s.logger.Debug("observation added",
		zap.String("fact_id", fact.ID),
		zap.String("source", source),
		zap.Float64("confidence", fact.Confidence),
	)

	if len(s.info.Facts) > s.maxFacts {
		s.PruneMemory()
	}
	return fact
}

// PruneScore ranks a fact for retention: weighted confidence plus recency,
// where recency falls linearly to zero over RecencyWindow.
func PruneScore(f domain.Fact, now time.Time) float64 {
	age := now.Sub(f.Timestamp).Seconds()
	recency := 1 - age/RecencyWindow.Seconds()
	if recency < 0 {
		recency = 0
	}
	return PruneConfidenceWeight*f.Confidence + PruneRecencyWeight*recency
}

// PruneMemory drops the lowest-scoring facts until at most maxFacts remain.
func (s *EvidenceStore) PruneMemory() int {
	excess := len(s.info.Facts) - s.maxFacts
	if excess <= 0 {
		return 0
	}

	now := s.now()
	ranked := append([]string(nil), s.order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return PruneScore(s.info.Facts[ranked[i]], now) < PruneScore(s.info.Facts[ranked[j]], now)
	})

	removed := make(map[string]bool, excess)
	for _, id := range ranked[:excess] {
		delete(s.info.Facts, id)
		delete(s.info.ConfidenceScores, id)
		removed[id] = true
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if !removed[id] {
			kept = append(kept, id)
		}
	}
	s.order = kept
	s.reasoning.TemporalContext = nil
	s.touch()

	s.logger.Debug("memory pruned", zap.Int("removed", excess), zap.Int("remaining", len(s.order)))
	return excess
}

// UpdateConfidenceScores averages each fact's confidence with the
// credibility of its source.
func (s *EvidenceStore) UpdateConfidenceScores() {
	for _, id := range s.order {
		f := s.info.Facts[id]
		src, ok := s.info.Sources[f.Source]
		if !ok {
			continue
		}
		f.Confidence = domain.ClampConfidence((f.Confidence + src.Credibility) / 2)
		s.info.Facts[id] = f
		s.info.ConfidenceScores[id] = f.Confidence
	}
	s.touch()
}

// InferRelationships regenerates temporal and causal relationships between
// every pair of facts and caches the temporal context.
func (s *EvidenceStore) InferRelationships() []domain.Relationship {
	facts := s.Facts()
	rels := make([]domain.Relationship, 0)

	for i := 0; i < len(facts); i++ {
		for j := i + 1; j < len(facts); j++ {
			a, b := facts[i], facts[j]
			switch {
			case a.Timestamp.Before(b.Timestamp):
				rels = append(rels, s.newRelationship(a.ID, domain.PredicateBefore, b.ID, TemporalRelationConf, ""))
			case a.Timestamp.After(b.Timestamp):
				rels = append(rels, s.newRelationship(a.ID, domain.PredicateAfter, b.ID, TemporalRelationConf, ""))
			}
		}
	}

	for i := 0; i < len(facts); i++ {
		for j := i + 1; j < len(facts); j++ {
			a, b := facts[i], facts[j]
			delta := a.Timestamp.Sub(b.Timestamp)
			if delta < 0 {
				delta = -delta
			}
			if delta > CausalWindow {
				continue
			}
			if ind := causalIndicator(a.Content, b.Content); ind != "" {
				rels = append(rels, s.newRelationship(a.ID, domain.PredicateCausal, b.ID, CausalRelationConf, ind))
			}
		}
	}

	s.info.Relationships = make(map[string]domain.Relationship, len(rels))
	for _, r := range rels {
		s.info.Relationships[r.ID] = r
	}
	s.reasoning.TemporalContext = temporalContext(facts)
	s.touch()
	return rels
}

func (s *EvidenceStore) newRelationship(subject string, p domain.Predicate, object string, conf float64, indicator string) domain.Relationship {
	return domain.Relationship{
		ID:         uuid.NewString(),
		Subject:    subject,
		Predicate:  p,
		Object:     object,
		Confidence: conf,
		Indicator:  indicator,
	}
}

func causalIndicator(a, b string) string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for _, ind := range causalIndicators {
		if strings.Contains(a, ind) || strings.Contains(b, ind) {
			return ind
		}
	}
	return ""
}

func temporalContext(facts []domain.Fact) *domain.TemporalContext {
	sorted := append([]domain.Fact(nil), facts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	tc := &domain.TemporalContext{OrderedFactIDs: make([]string, 0, len(sorted))}
	for _, f := range sorted {
		tc.OrderedFactIDs = append(tc.OrderedFactIDs, f.ID)
	}
	if len(sorted) > 0 {
		earliest := sorted[0].Timestamp
		latest := sorted[len(sorted)-1].Timestamp
		tc.EarliestTimestamp = &earliest
		tc.LatestTimestamp = &latest
	}
	return tc
}

// TemporalContext returns the context cached by the last InferRelationships,
// or nil when the facts changed since.
func (s *EvidenceStore) TemporalContext() *domain.TemporalContext {
	return s.reasoning.TemporalContext
}

// SummarizeState is the bounded view of the store handed to the LLM.
func (s *EvidenceStore) SummarizeState() domain.StateSummary {
	facts := s.Facts()
	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Confidence > facts[j].Confidence
	})
	if len(facts) > SummaryTopFacts {
		facts = facts[:SummaryTopFacts]
	}

	top := make([]domain.FactSummary, 0, len(facts))
	for _, f := range facts {
		top = append(top, domain.FactSummary{ID: f.ID, Content: f.Content, Source: f.Source, Confidence: f.Confidence})
	}

	return domain.StateSummary{
		Query:             s.query.OriginalQuery,
		CurrentFocus:      s.query.CurrentFocus,
		CurrentHypothesis: s.reasoning.CurrentHypothesis,
		AnswerDraft:       s.reasoning.AnswerDraft,
		InformationGaps:   capList(s.reasoning.InformationGaps, SummaryMaxListItems),
		NextSteps:         capList(s.reasoning.NextSteps, SummaryMaxListItems),
		TopFacts:          top,
		FactCount:         len(s.info.Facts),
		SourceCount:       len(s.info.Sources),
		RelationshipCount: len(s.info.Relationships),
	}
}

// capList keeps the n most recent entries.
func capList(in []string, n int) []string {
	if len(in) > n {
		in = in[len(in)-n:]
	}
	return append([]string{}, in...)
}

// appendRecent appends item, dropping an earlier copy so each entry appears
// once at its latest position.
func appendRecent(list []string, item string) []string {
	out := make([]string, 0, len(list)+1)
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return append(out, item)
}

// Serialize writes the whole store as a JSON snapshot.
func (s *EvidenceStore) Serialize() ([]byte, error) {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("serialize evidence store: %w", err)
	}
	return data, nil
}

// Snapshot copies the store into its persisted shape.
func (s *EvidenceStore) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		QueryState:       s.query,
		ExecutionHistory: s.history,
		InformationStore: s.info,
		ReasoningState:   s.reasoning,
		CreatedAt:        s.createdAt,
		UpdatedAt:        s.updatedAt,
	}
}

// Deserialize replaces the store with a snapshot produced by Serialize.
// Derived caches are dropped and the id counter continues past the highest
// fact id.
func (s *EvidenceStore) Deserialize(data []byte) error {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("deserialize evidence store: %w", err)
	}

	s.reset(snap.QueryState.OriginalQuery)
	s.query = snap.QueryState
	if snap.ExecutionHistory.Timestamps == nil {
		snap.ExecutionHistory.Timestamps = map[string]time.Time{}
	}
	s.history = snap.ExecutionHistory
	s.reasoning = snap.ReasoningState
	s.reasoning.TemporalContext = nil
	s.createdAt = snap.CreatedAt
	s.updatedAt = snap.UpdatedAt

	if snap.InformationStore.Facts != nil {
		s.info.Facts = snap.InformationStore.Facts
	}
	if snap.InformationStore.Relationships != nil {
		s.info.Relationships = snap.InformationStore.Relationships
	}
	if snap.InformationStore.Sources != nil {
		s.info.Sources = snap.InformationStore.Sources
	}
	if snap.InformationStore.ConfidenceScores != nil {
		s.info.ConfidenceScores = snap.InformationStore.ConfidenceScores
	}

	s.order = make([]string, 0, len(s.info.Facts))
	for id := range s.info.Facts {
		s.order = append(s.order, id)
		if n := factSeq(id); n > s.nextID {
			s.nextID = n
		}
	}
	sort.Slice(s.order, func(i, j int) bool {
		a, b := factSeq(s.order[i]), factSeq(s.order[j])
		if a != b {
			return a < b
		}
		return s.order[i] < s.order[j]
	})
	return nil
}

func factSeq(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, factIDPrefix))
	if err != nil {
		return 0
	}
	return n
}

// GetRelevantFacts returns facts whose content or source contains context,
// ignoring case.
func (s *EvidenceStore) GetRelevantFacts(context string) []domain.Fact {
	needle := strings.ToLower(context)
	var out []domain.Fact
	for _, id := range s.order {
		f := s.info.Facts[id]
		if strings.Contains(strings.ToLower(f.Content), needle) || strings.Contains(strings.ToLower(f.Source), needle) {
			out = append(out, f)
		}
	}
	return out
}

// Facts returns every fact in insertion order.
func (s *EvidenceStore) Facts() []domain.Fact {
	out := make([]domain.Fact, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.info.Facts[id])
	}
	return out
}

func (s *EvidenceStore) Fact(id string) (domain.Fact, bool) {
	f, ok := s.info.Facts[id]
	return f, ok
}

func (s *EvidenceStore) FactCount() int {
	return len(s.info.Facts)
}

func (s *EvidenceStore) Source(id string) (domain.SourceRecord, bool) {
	r, ok := s.info.Sources[id]
	return r, ok
}

func (s *EvidenceStore) Sources() map[string]domain.SourceRecord {
	out := make(map[string]domain.SourceRecord, len(s.info.Sources))
	for k, v := range s.info.Sources {
		out[k] = v
	}
	return out
}

func (s *EvidenceStore) Relationships() []domain.Relationship {
	out := make([]domain.Relationship, 0, len(s.info.Relationships))
	for _, r := range s.info.Relationships {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return factSeq(out[i].Subject) < factSeq(out[j].Subject)
		}
		if out[i].Object != out[j].Object {
			return factSeq(out[i].Object) < factSeq(out[j].Object)
		}
		return out[i].Predicate < out[j].Predicate
	})
	return out
}

func (s *EvidenceStore) Query() domain.QueryState {
	return s.query
}

func (s *EvidenceStore) History() domain.ExecutionHistory {
	return s.history
}

func (s *EvidenceStore) Reasoning() domain.ReasoningState {
	return s.reasoning
}

func (s *EvidenceStore) UpdatedAt() time.Time {
	return s.updatedAt
}

// RefineQuery records a refined query and makes it the current focus.
func (s *EvidenceStore) RefineQuery(refined, reason string) {
	s.query.QueryHistory = append(s.query.QueryHistory, domain.QueryRefinement{
		Original: s.query.CurrentFocus,
		Refined:  refined,
		Reason:   reason,
	})
	s.query.RefinedQueries = append(s.query.RefinedQueries, refined)
	s.query.CurrentFocus = refined
	s.touch()
}

func (s *EvidenceStore) RecordAction(actionType string, params map[string]any, result any) {
	now := s.now()
	s.history.ActionsTaken = append(s.history.ActionsTaken, domain.ActionRecord{
		ActionType: actionType,
		Timestamp:  now,
		Parameters: params,
		Result:     result,
	})
	s.history.Timestamps[fmt.Sprintf("action_%d", len(s.history.ActionsTaken))] = now
	s.touch()
}

func (s *EvidenceStore) RecordToolCall(toolName string, params map[string]any) {
	s.history.ToolCallSequence = append(s.history.ToolCallSequence, domain.ToolCall{
		ToolName:   toolName,
		Parameters: params,
		Timestamp:  s.now(),
	})
	s.touch()
}

func (s *EvidenceStore) RecordResult(resp domain.ToolResponse) {
	s.history.IntermediateResults = append(s.history.IntermediateResults, domain.ToolResult{
		ToolName:     resp.ToolName,
		ResponseData: map[string]any{"content": resp.Content},
		Timestamp:    s.now(),
		Metadata:     resp.Metadata,
	})
	s.touch()
}

func (s *EvidenceStore) SetHypothesis(h string) {
	s.reasoning.CurrentHypothesis = h
	s.touch()
}

func (s *EvidenceStore) SetAnswerDraft(d string) {
	s.reasoning.AnswerDraft = d
	s.touch()
}

func (s *EvidenceStore) AddInformationGap(gap string) {
	s.reasoning.InformationGaps = appendRecent(s.reasoning.InformationGaps, gap)
	s.touch()
}

func (s *EvidenceStore) AddNextStep(step string) {
	s.reasoning.NextSteps = appendRecent(s.reasoning.NextSteps, step)
	s.touch()
}

func (s *EvidenceStore) MarkTerminated() {
	s.reasoning.TerminationCriteriaMet = true
	s.touch()
}
