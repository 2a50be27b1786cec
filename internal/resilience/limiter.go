package resilience

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestsPerSecond = 1.0
	DefaultBucketCapacity    = 5

	// zeroRatePoll is the retry interval when the bucket never refills.
	zeroRatePoll = time.Second
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	BucketCapacity    int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: DefaultRequestsPerSecond,
		BucketCapacity:    DefaultBucketCapacity,
	}
}

type UsageStats struct {
	Requests  int `json:"requests"`
	Throttled int `json:"throttled"`
}

// TokenBucketLimiter keeps one token bucket per endpoint key. Buckets start
// full and refill continuously at RequestsPerSecond up to BucketCapacity.
type TokenBucketLimiter struct {
	config RateLimitConfig
	logger *zap.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
	stats   map[string]*UsageStats
}

func NewTokenBucketLimiter(config RateLimitConfig, logger *zap.Logger) *TokenBucketLimiter {
	if config.RequestsPerSecond < 0 {
		config.RequestsPerSecond = 0
	}
	if config.BucketCapacity <= 0 {
		config.BucketCapacity = DefaultBucketCapacity
	}
	return &TokenBucketLimiter{
		config:  config,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepContext,
		buckets: make(map[string]*rate.Limiter),
		stats:   make(map[string]*UsageStats),
	}
}

// bucket returns the bucket for endpoint, creating a full one if needed.
func (l *TokenBucketLimiter) bucket(endpoint string) *rate.Limiter {
	l.mu.RLock()
	b, exists := l.buckets[endpoint]
	l.mu.RUnlock()

	if exists {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if b, exists = l.buckets[endpoint]; exists {
		return b
	}

	b = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BucketCapacity)
	l.buckets[endpoint] = b
	return b
}

// Consume takes one token from the endpoint's bucket. It returns false and
// counts a throttle when the bucket is empty.
func (l *TokenBucketLimiter) Consume(endpoint string) bool {
	ok := l.bucket(endpoint).AllowN(l.now(), 1)

	l.mu.Lock()
	defer l.mu.Unlock()

	s, exists := l.stats[endpoint]
	if !exists {
		s = &UsageStats{}
		l.stats[endpoint] = s
	}
	if ok {
		s.Requests++
	} else {
		s.Throttled++
	}
	return ok
}

// Tokens reports the tokens currently available for endpoint.
func (l *TokenBucketLimiter) Tokens(endpoint string) float64 {
	return l.bucket(endpoint).TokensAt(l.now())
}

// QueueRequest blocks until the endpoint admits a request, then calls fn.
// Between attempts it sleeps 1/rate seconds.
func (l *TokenBucketLimiter) QueueRequest(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	interval := zeroRatePoll
	if l.config.RequestsPerSecond > 0 {
		interval = time.Duration(float64(time.Second) / l.config.RequestsPerSecond)
	}

	for !l.Consume(endpoint) {
		l.logger.Debug("rate limited, waiting",
			zap.String("endpoint", endpoint),
			zap.Duration("interval", interval),
		)
		if err := l.sleep(ctx, interval); err != nil {
			return err
		}
	}
	return fn(ctx)
}

func (l *TokenBucketLimiter) UsageStats(endpoint string) UsageStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if s, ok := l.stats[endpoint]; ok {
		return *s
	}
	return UsageStats{}
}

func (l *TokenBucketLimiter) AllUsageStats() map[string]UsageStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]UsageStats, len(l.stats))
	for k, s := range l.stats {
		out[k] = *s
	}
	return out
}

// ResetUsageStats zeroes the counters. Bucket contents are kept.
func (l *TokenBucketLimiter) ResetUsageStats() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.stats {
		s.Requests = 0
		s.Throttled = 0
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
