package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const namespace = "msa"

type APICallStats struct {
	Count           int     `json:"count"`
	TotalDuration   float64 `json:"total_duration"`
	TotalCost       float64 `json:"total_cost"`
	AverageDuration float64 `json:"average_duration"`
	AverageCost     float64 `json:"average_cost"`
}

type IterationStats struct {
	ThoughtsDuration   float64 `json:"thoughts_duration"`
	ActionDuration     float64 `json:"action_duration"`
	CompletionDuration float64 `json:"completion_duration"`
	TotalDuration      float64 `json:"total_duration"`
}

type ToolStats struct {
	Count           int     `json:"count"`
	SuccessCount    int     `json:"success_count"`
	TotalDuration   float64 `json:"total_duration"`
	AverageDuration float64 `json:"average_duration"`
	SuccessRate     float64 `json:"success_rate"`
}

type TimingSummary struct {
	Count       int     `json:"count"`
	TotalTime   float64 `json:"total_time"`
	AverageTime float64 `json:"average_time"`
	MinTime     float64 `json:"min_time"`
	MaxTime     float64 `json:"max_time"`
}

type Summary struct {
	OperationTimings     map[string]TimingSummary  `json:"operation_timings"`
	APICalls             map[string]APICallStats   `json:"api_calls"`
	ControllerIterations map[string]IterationStats `json:"controller_iterations"`
	MemoryOperations     map[string][]float64      `json:"memory_operations"`
	ToolExecutions       map[string]ToolStats      `json:"tool_executions"`
}

// snapshot is the raw form written by Save.
type snapshot struct {
	OperationTimings     map[string][]float64      `json:"operation_timings"`
	APICalls             map[string]APICallStats   `json:"api_calls"`
	ControllerIterations map[string]IterationStats `json:"controller_iterations"`
	MemoryOperations     map[string][]float64      `json:"memory_operations"`
	ToolExecutions       map[string]ToolStats      `json:"tool_executions"`
}

func newSnapshot() snapshot {
	return snapshot{
		OperationTimings:     make(map[string][]float64),
		APICalls:             make(map[string]APICallStats),
		ControllerIterations: make(map[string]IterationStats),
		MemoryOperations:     make(map[string][]float64),
		ToolExecutions:       make(map[string]ToolStats),
	}
}

// Performance records run timings in memory for summaries and mirrors every
// record to prometheus collectors on its own registry.
type Performance struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	apiCalls          *prometheus.CounterVec
	apiDuration       *prometheus.HistogramVec
	apiCost           *prometheus.CounterVec
	iterations        prometheus.Counter
	phaseDuration     *prometheus.HistogramVec
	memoryDuration    *prometheus.HistogramVec
	toolExecutions    *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec

	mu         sync.Mutex
	data       snapshot
	startTimes map[string]time.Time
}

func NewPerformance(logger *zap.Logger) *Performance {
	p := &Performance{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of timed operations.",
		}, []string{"operation"}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "External API calls by endpoint.",
		}, []string{"endpoint"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_call_duration_seconds",
			Help:      "External API call latency by endpoint.",
		}, []string{"endpoint"}),
		apiCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_call_cost_total",
			Help:      "Estimated external API cost by endpoint.",
		}, []string{"endpoint"}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "controller_iterations_total",
			Help:      "Controller loop iterations.",
		}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "controller_phase_duration_seconds",
			Help:      "Controller phase latency.",
		}, []string{"phase"}),
		memoryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "memory_operation_duration_seconds",
			Help:      "Evidence store operation latency.",
		}, []string{"operation"}),
		toolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Capability executions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_execution_duration_seconds",
			Help:      "Capability execution latency.",
		}, []string{"tool"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by status code.",
		}, []string{"code"}),
		data:       newSnapshot(),
		startTimes: make(map[string]time.Time),
	}

	p.registry.MustRegister(
		p.operationDuration,
		p.apiCalls,
		p.apiDuration,
		p.apiCost,
		p.iterations,
		p.phaseDuration,
		p.memoryDuration,
		p.toolExecutions,
		p.toolDuration,
		p.httpRequests,
	)
	return p
}

// Registry exposes the collectors for a /metrics handler.
func (p *Performance) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Performance) StartTimer(operation string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTimes[operation] = time.Now()
}

// StopTimer records the time since StartTimer. It returns 0 when the timer
// was never started.
func (p *Performance) StopTimer(operation string) time.Duration {
	p.mu.Lock()
	start, ok := p.startTimes[operation]
	if !ok {
		p.mu.Unlock()
		p.logger.Warn("timer was not started", zap.String("operation", operation))
		return 0
	}
	delete(p.startTimes, operation)
	p.mu.Unlock()

	d := time.Since(start)
	p.ObserveOperation(operation, d)
	return d
}

// ObserveOperation records a duration measured by the caller. Unlike the
// named timers it is safe for overlapping operations of the same name.
func (p *Performance) ObserveOperation(operation string, d time.Duration) {
	p.mu.Lock()
	p.data.OperationTimings[operation] = append(p.data.OperationTimings[operation], d.Seconds())
	p.mu.Unlock()

	p.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Time starts a timer and returns the function that stops it.
func (p *Performance) Time(operation string) func() time.Duration {
	p.StartTimer(operation)
	return func() time.Duration { return p.StopTimer(operation) }
}

func (p *Performance) RecordAPICall(endpoint string, duration time.Duration, cost float64) {
	p.mu.Lock()
	s := p.data.APICalls[endpoint]
	s.Count++
	s.TotalDuration += duration.Seconds()
	s.TotalCost += cost
	s.AverageDuration = s.TotalDuration / float64(s.Count)
	s.AverageCost = s.TotalCost / float64(s.Count)
	p.data.APICalls[endpoint] = s
	p.mu.Unlock()

	p.apiCalls.WithLabelValues(endpoint).Inc()
	p.apiDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if cost > 0 {
		p.apiCost.WithLabelValues(endpoint).Add(cost)
	}
}

func (p *Performance) RecordIteration(iteration int, thoughts, action, completion time.Duration) {
	stats := IterationStats{
		ThoughtsDuration:   thoughts.Seconds(),
		ActionDuration:     action.Seconds(),
		CompletionDuration: completion.Seconds(),
		TotalDuration:      (thoughts + action + completion).Seconds(),
	}

	p.mu.Lock()
	p.data.ControllerIterations[strconv.Itoa(iteration)] = stats
	p.mu.Unlock()

	p.iterations.Inc()
	p.phaseDuration.WithLabelValues("think").Observe(stats.ThoughtsDuration)
	p.phaseDuration.WithLabelValues("action").Observe(stats.ActionDuration)
	p.phaseDuration.WithLabelValues("completion").Observe(stats.CompletionDuration)
}

func (p *Performance) RecordMemoryOperation(operation string, duration time.Duration) {
	p.mu.Lock()
	p.data.MemoryOperations[operation] = append(p.data.MemoryOperations[operation], duration.Seconds())
	p.mu.Unlock()

	p.memoryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (p *Performance) RecordToolExecution(tool string, duration time.Duration, success bool) {
	p.mu.Lock()
	s := p.data.ToolExecutions[tool]
	s.Count++
	if success {
		s.SuccessCount++
	}
	s.TotalDuration += duration.Seconds()
	s.AverageDuration = s.TotalDuration / float64(s.Count)
	s.SuccessRate = float64(s.SuccessCount) / float64(s.Count)
	p.data.ToolExecutions[tool] = s
	p.mu.Unlock()

	outcome := "success"
	if !success {
		outcome = "failure"
	}
	p.toolExecutions.WithLabelValues(tool, outcome).Inc()
	p.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func (p *Performance) RecordHTTPRequest(status int) {
	p.httpRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (p *Performance) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := Summary{
		OperationTimings:     make(map[string]TimingSummary, len(p.data.OperationTimings)),
		APICalls:             make(map[string]APICallStats, len(p.data.APICalls)),
		ControllerIterations: make(map[string]IterationStats, len(p.data.ControllerIterations)),
		MemoryOperations:     make(map[string][]float64, len(p.data.MemoryOperations)),
		ToolExecutions:       make(map[string]ToolStats, len(p.data.ToolExecutions)),
	}

	for op, timings := range p.data.OperationTimings {
		if len(timings) == 0 {
			continue
		}
		ts := TimingSummary{Count: len(timings), MinTime: timings[0], MaxTime: timings[0]}
		for _, t := range timings {
			ts.TotalTime += t
			if t < ts.MinTime {
				ts.MinTime = t
			}
			if t > ts.MaxTime {
				ts.MaxTime = t
			}
		}
		ts.AverageTime = ts.TotalTime / float64(ts.Count)
		out.OperationTimings[op] = ts
	}
	for k, v := range p.data.APICalls {
		out.APICalls[k] = v
	}
	for k, v := range p.data.ControllerIterations {
		out.ControllerIterations[k] = v
	}
	for k, v := range p.data.MemoryOperations {
		out.MemoryOperations[k] = append([]float64(nil), v...)
	}
	for k, v := range p.data.ToolExecutions {
		out.ToolExecutions[k] = v
	}
	return out
}

// Reset clears the in-memory records. Prometheus counters are cumulative and
// are left alone.
func (p *Performance) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = newSnapshot()
	p.startTimes = make(map[string]time.Time)
}

// Save writes the raw records to path as indented JSON.
func (p *Performance) Save(path string) error {
	p.mu.Lock()
	data, err := json.MarshalIndent(p.data, "", "  ")
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
