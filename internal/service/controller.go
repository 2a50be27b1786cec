package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mpaguilar/msa-toy/internal/capability"
	"github.com/mpaguilar/msa-toy/internal/domain"
	"github.com/mpaguilar/msa-toy/internal/llm"
	"github.com/mpaguilar/msa-toy/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Controller constants
const (
	DefaultMaxIterations      = 10
	MaxConsecutiveToolFailure = 3
	FallbackActionConfidence  = 0.5
	tracerName                = "github.com/mpaguilar/msa-toy/internal/service"
)

// Terminal answers for runs that end without a synthesis.
const (
	MsgNoNextAction       = "Unable to determine next action."
	MsgOnlyToolFailures   = "Unable to complete task due to tool failures."
	MsgRepeatedFailures   = "Unable to complete task due to repeated tool failures."
	MsgMaxIterations      = "Reached maximum iterations without completing the task."
	observationPrefix     = "Observed: "
	toolErrorMarker       = "Error executing tool"
	toolNotFoundMarker    = "Error: Tool '"
	continueGatheringTask = "Continue gathering information"
)

// invoker is implemented by guarded capabilities that report guard errors
// separately from the response.
type invoker interface {
	Invoke(ctx context.Context, query string) (domain.ToolResponse, error)
}

type ControllerConfig struct {
	MaxIterations int
	MaxFacts      int
}

// Controller runs the think, select-action, check-completion loop for one
// query at a time per call. The registries it holds are shared across
// calls; the evidence store is not.
type Controller struct {
	cfg       ControllerConfig
	llms      *llm.Registry
	tools     *capability.Registry
	scorer    *ConfidenceScorer
	conflicts *ConflictResolver
	metrics   *metrics.Performance
	tracer    trace.Tracer
	logger    *zap.Logger
}

func NewController(cfg ControllerConfig, llms *llm.Registry, tools *capability.Registry, perf *metrics.Performance, logger *zap.Logger) *Controller {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxFacts <= 0 {
		cfg.MaxFacts = DefaultMaxFacts
	}
	if perf == nil {
		perf = metrics.NewPerformance(logger)
	}
	return &Controller{
		cfg:       cfg,
		llms:      llms,
		tools:     tools,
		scorer:    NewConfidenceScorer(logger),
		conflicts: NewConflictResolver(logger),
		metrics:   perf,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

func (c *Controller) Metrics() *metrics.Performance {
	return c.metrics
}

// Process answers query. It never returns an error: every failure ends up
// as answer text.
func (c *Controller) Process(ctx context.Context, query string) (answer string) {
	runID := uuid.NewString()
	log := c.logger.With(zap.String("run_id", runID))

	ctx, span := c.tracer.Start(ctx, "controller.process", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("max_iterations", c.cfg.MaxIterations),
	))
	defer span.End()
	started := time.Now()
	defer func() { c.metrics.ObserveOperation("process_query", time.Since(started)) }()

	defer func() {
		if r := recover(); r != nil {
			log.Error("run panicked", zap.Any("panic", r))
			span.SetStatus(codes.Error, fmt.Sprint(r))
			answer = fmt.Sprintf("Error: %v", r)
		}
	}()

	log.Info("processing query", zap.String("query", query))
	store := NewEvidenceStore(query, c.cfg.MaxFacts, log)
	selector := NewToolSelector(c.tools.Names(), c.scorer, c.conflicts, log)
	failures := 0

	for i := 1; i <= c.cfg.MaxIterations; i++ {
		log.Debug("iteration started", zap.Int("iteration", i))
		span.AddEvent("iteration", trace.WithAttributes(attribute.Int("iteration", i)))

		start := time.Now()
		thought := c.think(ctx, log, store, query)
		thinkDur := time.Since(start)
		if thought != "" {
			store.SetHypothesis(thought)
		}

		start = time.Now()
		decision := c.selectAction(ctx, log, selector, store, query, thought)
		actionDur := time.Since(start)
		store.RecordAction(string(decision.ActionType), map[string]any{
			"action_name": decision.ActionName,
			"reasoning":   decision.Reasoning,
			"confidence":  decision.Confidence,
			"iteration":   i,
		}, nil)

		start = time.Now()
		completion := c.checkCompletion(ctx, log, store, query)
		completionDur := time.Since(start)
		c.metrics.RecordIteration(i, thinkDur, actionDur, completionDur)

		if completion.Answer != "" {
			store.SetAnswerDraft(completion.Answer)
		}

		if completion.IsComplete {
			log.Info("completion reached", zap.Int("iteration", i), zap.Float64("confidence", completion.Confidence))
			store.MarkTerminated()
			return c.synthesize(ctx, log, store, query)
		}
		for _, task := range completion.RemainingTasks {
			store.AddNextStep(task)
		}

		switch decision.ActionType {
		case domain.ActionTypeTool:
			resp := c.ExecuteTool(ctx, decision.ActionName, query)
			store.RecordToolCall(decision.ActionName, map[string]any{"query": query})
			store.RecordResult(resp)

			cred := c.scorer.SourceCredibility(decision.ActionName)
			start = time.Now()
			store.AddObservation(observationPrefix+resp.Content, decision.ActionName, decision.Confidence, &cred)
			c.metrics.RecordMemoryOperation("add_observation", time.Since(start))
			start = time.Now()
			store.InferRelationships()
			c.metrics.RecordMemoryOperation("infer_relationships", time.Since(start))
			for _, conflict := range c.conflicts.DetectConflicts(store) {
				store.AddInformationGap(conflict.Description)
			}

			if resp.HasError() {
				failures++
				log.Warn("tool execution failed",
					zap.String("tool", decision.ActionName),
					zap.Int("consecutive_failures", failures),
				)
				if failures >= MaxConsecutiveToolFailure {
					span.SetStatus(codes.Error, "repeated tool failures")
					return MsgRepeatedFailures
				}
			} else {
				failures = 0
			}

		case domain.ActionTypeStop:
			facts := store.Facts()
			if len(facts) == 0 {
				return MsgNoNextAction
			}
			if onlyToolErrors(facts) {
				return MsgOnlyToolFailures
			}
			store.MarkTerminated()
			return c.synthesize(ctx, log, store, query)

		default:
			log.Warn("unsupported action type", zap.String("action_type", string(decision.ActionType)))
			return MsgNoNextAction
		}
	}

	log.Warn("maximum iterations reached", zap.Int("max_iterations", c.cfg.MaxIterations))
	return MsgMaxIterations
}

func onlyToolErrors(facts []domain.Fact) bool {
	for _, f := range facts {
		if !strings.Contains(f.Content, toolErrorMarker) && !strings.Contains(f.Content, toolNotFoundMarker) {
			return false
		}
	}
	return true
}

func (c *Controller) callLLM(ctx context.Context, endpoint, prompt string, schema *domain.Schema) (*domain.LLMResponse, error) {
	client, err := c.llms.Client(endpoint)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := client.Call(ctx, prompt, schema)
	c.metrics.RecordAPICall(endpoint, time.Since(start), 0)
	return resp, err
}

func (c *Controller) think(ctx context.Context, log *zap.Logger, store *EvidenceStore, query string) string {
	ctx, span := c.tracer.Start(ctx, "controller.think")
	defer span.End()

	summary, err := json.MarshalIndent(store.SummarizeState(), "", "  ")
	if err != nil {
		log.Warn("summarize state failed", zap.Error(err))
		summary = []byte("{}")
	}

	resp, err := c.callLLM(ctx, llm.EndpointThinking, fmt.Sprintf(llm.ThinkPrompt, query, summary), nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Warn("thinking failed", zap.Error(err))
		return ""
	}
	log.Debug("thought", zap.String("content", resp.Content))
	return resp.Content
}

// defaultTool is the first registered capability name, or "" when none is
// registered.
func (c *Controller) defaultTool() string {
	if d, ok := c.tools.Default(); ok {
		return d.Name()
	}
	return ""
}

func (c *Controller) selectAction(ctx context.Context, log *zap.Logger, selector *ToolSelector, store *EvidenceStore, query, thought string) domain.ActionDecision {
	ctx, span := c.tracer.Start(ctx, "controller.select_action")
	defer span.End()

	prompt := fmt.Sprintf(llm.ActionPrompt, strings.Join(c.tools.Names(), ", "), thought)
	resp, err := c.callLLM(ctx, llm.EndpointAction, prompt, llm.ActionSchema)
	var decision domain.ActionDecision
	if err == nil {
		decision, err = llm.Decode[domain.ActionDecision](resp)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Warn("action selection failed, using default tool", zap.Error(err))
		return domain.ActionDecision{
			ActionType: domain.ActionTypeTool,
			ActionName: c.defaultTool(),
			Reasoning:  fmt.Sprintf("Error in LLM action selection: %v", err),
			Confidence: FallbackActionConfidence,
		}
	}

	if verr := decision.Validate(); verr != nil {
		if !domain.ValidActionType(string(decision.ActionType)) {
			log.Warn("invalid action type normalized", zap.String("action_type", string(decision.ActionType)))
			name := decision.ActionName
			if _, ok := c.tools.Get(name); !ok {
				if d := c.defaultTool(); d != "" {
					name = d
				}
			}
			return domain.ActionDecision{
				ActionType: domain.ActionTypeTool,
				ActionName: name,
				Reasoning:  fmt.Sprintf("Invalid action type '%s' normalized to tool", decision.ActionType),
				Confidence: FallbackActionConfidence,
			}
		}
		decision.Confidence = domain.ClampConfidence(decision.Confidence)
	}

	if decision.ActionType == domain.ActionTypeTool && decision.ActionName == "" {
		decision.ActionName = selector.SelectTool(query, store)
	}

	span.SetAttributes(
		attribute.String("action_type", string(decision.ActionType)),
		attribute.String("action_name", decision.ActionName),
	)
	log.Debug("action selected",
		zap.String("action_type", string(decision.ActionType)),
		zap.String("action_name", decision.ActionName),
		zap.Float64("confidence", decision.Confidence),
	)
	return decision
}

func (c *Controller) checkCompletion(ctx context.Context, log *zap.Logger, store *EvidenceStore, query string) domain.CompletionDecision {
	ctx, span := c.tracer.Start(ctx, "controller.check_completion")
	defer span.End()

	collected, err := factsJSON(store.Facts())
	var resp *domain.LLMResponse
	if err == nil {
		resp, err = c.callLLM(ctx, llm.EndpointCompletion, fmt.Sprintf(llm.CompletionPrompt, query, collected), llm.CompletionSchema)
	}
	var decision domain.CompletionDecision
	if err == nil {
		decision, err = llm.Decode[domain.CompletionDecision](resp)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Warn("completion check failed", zap.Error(err))
		return domain.CompletionDecision{
			IsComplete:     false,
			Confidence:     0,
			Reasoning:      fmt.Sprintf("Error in LLM completion check: %v", err),
			RemainingTasks: []string{continueGatheringTask},
		}
	}
	if verr := decision.Validate(); verr != nil {
		decision.Confidence = domain.ClampConfidence(decision.Confidence)
	}

	span.SetAttributes(attribute.Bool("is_complete", decision.IsComplete))
	return decision
}

func (c *Controller) synthesize(ctx context.Context, log *zap.Logger, store *EvidenceStore, query string) string {
	ctx, span := c.tracer.Start(ctx, "controller.synthesize")
	defer span.End()

	client, err := c.llms.Client(llm.EndpointCompletion)
	if err != nil {
		log.Warn("no completion client for synthesis", zap.Error(err))
	}
	return NewSynthesisEngine(c.scorer, client, log).Synthesize(ctx, store, query)
}

// ExecuteTool runs the named capability. Unknown names and guard errors are
// turned into error responses rather than returned.
func (c *Controller) ExecuteTool(ctx context.Context, name, query string) domain.ToolResponse {
	ctx, span := c.tracer.Start(ctx, "controller.execute_tool", trace.WithAttributes(attribute.String("tool", name)))
	defer span.End()

	tool, ok := c.tools.Get(name)
	if !ok {
		span.SetStatus(codes.Error, "tool not found")
		return domain.ToolResponse{
			ToolName:  name,
			Content:   fmt.Sprintf("Error: Tool '%s' not found", name),
			Metadata:  map[string]any{"error": "tool_not_found"},
			Timestamp: time.Now(),
		}
	}

	start := time.Now()
	var resp domain.ToolResponse
	if inv, ok := tool.(invoker); ok {
		var err error
		resp, err = inv.Invoke(ctx, query)
		if err != nil {
			resp = domain.ToolResponse{
				ToolName:  name,
				Content:   fmt.Sprintf("Error executing tool '%s': %v", name, err),
				Metadata:  map[string]any{"error": err.Error()},
				Timestamp: time.Now(),
			}
		}
	} else {
		resp = tool.Execute(ctx, query)
	}
	if resp.ToolName == "" {
		resp.ToolName = name
	}

	success := !resp.HasError()
	c.metrics.RecordToolExecution(name, time.Since(start), success)
	if !success {
		span.SetStatus(codes.Error, resp.Content)
	}
	return resp
}
