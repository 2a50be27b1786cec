package main

import (
	"context"
	"fmt"

	"github.com/mpaguilar/msa-toy/internal/api/handlers"
	"github.com/mpaguilar/msa-toy/internal/capability"
	"github.com/mpaguilar/msa-toy/internal/config"
	"github.com/mpaguilar/msa-toy/internal/domain"
	"github.com/mpaguilar/msa-toy/internal/llm"
	"github.com/mpaguilar/msa-toy/internal/metrics"
	"github.com/mpaguilar/msa-toy/internal/resilience"
	"github.com/mpaguilar/msa-toy/internal/service"
	"github.com/mpaguilar/msa-toy/internal/store"
	"go.uber.org/zap"
)

// appRuntime is everything a query run or the HTTP server needs.
type appRuntime struct {
	answerer handlers.Answerer
	perf     *metrics.Performance
	breakers []*resilience.CircuitBreaker
	cache    domain.CacheStore
}

func (rt *appRuntime) Close() error {
	if rt.cache == nil {
		return nil
	}
	return rt.cache.Close()
}

type runtimeBuilder func(ctx context.Context, logger *zap.Logger) (*appRuntime, error)

func buildRuntime(ctx context.Context, logger *zap.Logger) (*appRuntime, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	appCfg, err := config.LoadAppConfig(config.AppConfigPath())
	if err != nil {
		return nil, err
	}
	llmCfg, err := config.LoadLLMConfig(config.LLMConfigPath())
	if err != nil {
		return nil, err
	}

	cacheStore, err := store.NewCacheStore(ctx, appCfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	cache := resilience.NewExpiringCache(cacheStore, appCfg.Cache.TTL(), logger)

	limiter := resilience.NewTokenBucketLimiter(resilience.RateLimitConfig{
		RequestsPerSecond: appCfg.RateLimit.RequestsPerSecond,
		BucketCapacity:    appCfg.RateLimit.BucketCapacity,
	}, logger)
	breakerCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: appCfg.CircuitBreaker.FailureThreshold,
		Timeout:          appCfg.CircuitBreaker.Timeout(),
		HalfOpenAttempts: appCfg.CircuitBreaker.HalfOpenAttempts,
	}

	tools := capability.NewRegistry()
	var breakers []*resilience.CircuitBreaker
	guard := func(c domain.Capability) {
		b := resilience.NewCircuitBreaker(c.Name(), breakerCfg, logger)
		breakers = append(breakers, b)
		tools.Register(capability.NewGuarded(c, cache, limiter, b, logger))
	}

	if ws, err := capability.NewWebSearch(config.SerpAPIKey(), logger); err != nil {
		logger.Warn("web search disabled", zap.Error(err))
	} else {
		guard(ws)
	}
	guard(capability.NewWikipedia(logger))

	perf := metrics.NewPerformance(logger)
	controller := service.NewController(service.ControllerConfig{
		MaxIterations: appCfg.MaxIterations,
		MaxFacts:      appCfg.MaxFacts,
	}, llm.NewRegistry(llmCfg, logger), tools, perf, logger)

	logger.Info("runtime ready",
		zap.Strings("capabilities", tools.Names()),
		zap.String("cache_backend", appCfg.Cache.Backend),
		zap.Int("max_iterations", appCfg.MaxIterations),
	)

	return &appRuntime{
		answerer: controller,
		perf:     perf,
		breakers: breakers,
		cache:    cacheStore,
	}, nil
}
