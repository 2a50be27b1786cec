package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"github.com/mpaguilar/msa-toy/internal/resilience"
	"go.uber.org/zap"
)

var ErrToolFailed = errors.New("tool reported an error")

// Guarded wraps a capability with a response cache, a circuit breaker and a
// rate limiter, checked in that order. Only successful responses are
// cached, and a response flagged with metadata["error"] counts as a breaker
// failure.
type Guarded struct {
	inner   domain.Capability
	cache   *resilience.ExpiringCache
	limiter *resilience.TokenBucketLimiter
	breaker *resilience.CircuitBreaker
	ttl     time.Duration
	logger  *zap.Logger
}

// NewGuarded builds a guarded capability. Any of cache, limiter and breaker
// may be nil to skip that guard.
func NewGuarded(
	inner domain.Capability,
	cache *resilience.ExpiringCache,
	limiter *resilience.TokenBucketLimiter,
	breaker *resilience.CircuitBreaker,
	logger *zap.Logger,
) *Guarded {
	return &Guarded{
		inner:   inner,
		cache:   cache,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// WithTTL overrides the cache's default TTL for this capability.
func (g *Guarded) WithTTL(ttl time.Duration) *Guarded {
	g.ttl = ttl
	return g
}

func (g *Guarded) Name() string {
	return g.inner.Name()
}

func (g *Guarded) ValidateResponse(raw map[string]any) bool {
	return g.inner.ValidateResponse(raw)
}

// Breaker exposes the circuit breaker for status reporting.
func (g *Guarded) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

// CacheKey is the cache key for query on this capability.
func (g *Guarded) CacheKey(query string) string {
	return g.inner.Name() + "_" + resilience.NormalizeQuery(query)
}

// Invoke runs the capability behind its guards. A response flagged with an
// error is returned as is, after counting against the breaker. A returned
// error means the capability did not run: the limiter wait was cancelled or
// the circuit is open.
func (g *Guarded) Invoke(ctx context.Context, query string) (domain.ToolResponse, error) {
	key := g.CacheKey(query)
	if g.cache != nil {
		var cached domain.ToolResponse
		if g.cache.GetInto(ctx, key, g.ttl, &cached) {
			g.logger.Debug("capability cache hit", zap.String("tool", g.Name()))
			return cached, nil
		}
	}

	// Reject on an open circuit before spending a limiter token.
	if g.breaker != nil {
		if err := g.breaker.Allow(); err != nil {
			return domain.ToolResponse{}, err
		}
	}

	var resp domain.ToolResponse
	run := func(ctx context.Context) error {
		resp = g.inner.Execute(ctx, query)
		if resp.HasError() {
			return fmt.Errorf("%w: %s", ErrToolFailed, resp.Content)
		}
		return nil
	}

	guarded := run
	if g.breaker != nil {
		guarded = func(ctx context.Context) error {
			return g.breaker.Execute(ctx, run)
		}
	}

	var err error
	if g.limiter != nil {
		err = g.limiter.QueueRequest(ctx, g.Name(), guarded)
	} else {
		err = guarded(ctx)
	}

	if err != nil {
		if errors.Is(err, ErrToolFailed) {
			return resp, nil
		}
		return domain.ToolResponse{}, err
	}

	if g.cache != nil {
		if cerr := g.cache.Set(ctx, key, resp, g.ttl); cerr != nil {
			g.logger.Warn("capability cache write failed", zap.String("tool", g.Name()), zap.Error(cerr))
		}
	}
	return resp, nil
}

// Execute satisfies domain.Capability; guard errors become error responses.
func (g *Guarded) Execute(ctx context.Context, query string) domain.ToolResponse {
	resp, err := g.Invoke(ctx, query)
	if err != nil {
		return domain.ToolResponse{
			ToolName:  g.Name(),
			Content:   fmt.Sprintf("Error executing tool '%s': %v", g.Name(), err),
			Metadata:  map[string]any{"error": err.Error()},
			Timestamp: time.Now(),
		}
	}
	return resp
}
