package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

const (
	DefaultFailureThreshold = 5
	DefaultBreakerTimeout   = 60 * time.Second
	DefaultHalfOpenAttempts = 3
)

type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures in CLOSED that trips the breaker.
	FailureThreshold int
	// Timeout is measured from the last failure before an OPEN breaker lets a probe through.
	Timeout time.Duration
	// HalfOpenAttempts is the number of successes in HALF_OPEN needed to close.
	HalfOpenAttempts int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: DefaultFailureThreshold,
		Timeout:          DefaultBreakerTimeout,
		HalfOpenAttempts: DefaultHalfOpenAttempts,
	}
}

type CircuitStateInfo struct {
	Name                 string     `json:"name"`
	State                string     `json:"state"`
	FailureCount         int        `json:"failure_count"`
	LastFailureTime      *time.Time `json:"last_failure_time"`
	HalfOpenSuccessCount int        `json:"half_open_success_count"`
}

// CircuitBreaker isolates one dependency. The wrapped call runs outside the
// lock, so a breaker can be shared by concurrent runs.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	logger *zap.Logger
	now    func() time.Time

	mu                   sync.Mutex
	state                CircuitState
	failureCount         int
	lastFailureTime      *time.Time
	halfOpenSuccessCount int
}

func NewCircuitBreaker(name string, config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultFailureThreshold
	}
	if config.Timeout < 0 {
		config.Timeout = DefaultBreakerTimeout
	}
	if config.HalfOpenAttempts <= 0 {
		config.HalfOpenAttempts = DefaultHalfOpenAttempts
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		logger: logger,
		now:    time.Now,
		state:  CircuitClosed,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn unless the breaker is open. fn's error is returned unchanged
// after it has been counted.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		cb.onFailure()
		cb.logger.Warn("circuit breaker recorded failure",
			zap.String("breaker", cb.name),
			zap.Error(err),
		)
		return err
	}

	cb.onSuccess()
	return nil
}

// Allow returns the OPEN error when Execute would reject a call right now.
// It does not change state.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && !cb.shouldAttemptReset() {
		return fmt.Errorf("circuit breaker %s is OPEN: %w", cb.name, ErrCircuitOpen)
	}
	return nil
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return nil
	}
	if cb.shouldAttemptReset() {
		cb.state = CircuitHalfOpen
		cb.halfOpenSuccessCount = 0
		cb.logger.Info("circuit breaker half-open", zap.String("breaker", cb.name))
		return nil
	}

	cb.logger.Warn("circuit breaker rejected call", zap.String("breaker", cb.name))
	return fmt.Errorf("circuit breaker %s is OPEN: %w", cb.name, ErrCircuitOpen)
}

// Must be called with lock held.
func (cb *CircuitBreaker) shouldAttemptReset() bool {
	if cb.lastFailureTime == nil {
		return false
	}
	return cb.now().Sub(*cb.lastFailureTime) >= cb.config.Timeout
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.halfOpenSuccessCount++
		if cb.halfOpenSuccessCount >= cb.config.HalfOpenAttempts {
			cb.reset()
		}
		return
	}
	cb.reset()
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	t := cb.now()
	cb.lastFailureTime = &t

	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.config.FailureThreshold {
		if cb.state != CircuitOpen {
			cb.logger.Warn("circuit breaker opened",
				zap.String("breaker", cb.name),
				zap.Int("failure_count", cb.failureCount),
			)
		}
		cb.state = CircuitOpen
	}
}

// Must be called with lock held.
func (cb *CircuitBreaker) reset() {
	if cb.state != CircuitClosed {
		cb.logger.Info("circuit breaker closed", zap.String("breaker", cb.name))
	}
	cb.state = CircuitClosed
	cb.failureCount = 0
	cb.lastFailureTime = nil
	cb.halfOpenSuccessCount = 0
}

// Reset forces the breaker back to CLOSED.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
}

func (cb *CircuitBreaker) StateInfo() CircuitStateInfo {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	info := CircuitStateInfo{
		Name:                 cb.name,
		State:                cb.state.String(),
		FailureCount:         cb.failureCount,
		HalfOpenSuccessCount: cb.halfOpenSuccessCount,
	}
	if cb.lastFailureTime != nil {
		t := *cb.lastFailureTime
		info.LastFailureTime = &t
	}
	return info
}
