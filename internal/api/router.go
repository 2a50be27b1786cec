package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mpaguilar/msa-toy/internal/api/handlers"
	mw "github.com/mpaguilar/msa-toy/internal/api/middleware"
	"github.com/mpaguilar/msa-toy/internal/buildconfig"
	"github.com/mpaguilar/msa-toy/internal/config"
	"github.com/mpaguilar/msa-toy/internal/metrics"
	"github.com/mpaguilar/msa-toy/internal/resilience"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP surface needs. Performance and Limiter
// are created when nil; the limiter then follows RATE_LIMIT_RPS and
// RATE_LIMIT_BURST.
type Deps struct {
	Answerer    handlers.Answerer
	Performance *metrics.Performance
	Breakers    []*resilience.CircuitBreaker
	Limiter     *resilience.TokenBucketLimiter
}

// App holds the router and the counters behind /v1/stats.
type App struct {
	Router       *chi.Mux
	perf         *metrics.Performance
	limiter      *resilience.TokenBucketLimiter
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(deps Deps, logger *zap.Logger) *App {
	if deps.Performance == nil {
		deps.Performance = metrics.NewPerformance(logger)
	}
	if deps.Limiter == nil {
		deps.Limiter = resilience.NewTokenBucketLimiter(resilience.RateLimitConfig{
			RequestsPerSecond: config.RateLimitRPS(),
			BucketCapacity:    config.RateLimitBurst(),
		}, logger)
	}

	queryHandler := handlers.NewQueryHandler(deps.Answerer, logger)
	healthHandler := handlers.NewHealthHandler(deps.Breakers)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		perf:      deps.Performance,
		limiter:   deps.Limiter,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount, deps.Performance)

	// Global middleware (order matters)
	r.Use(mw.RequestID)                // Generate/extract request ID first
	r.Use(middleware.RealIP)           // Extract real IP
	r.Use(metricsCollector.Middleware) // Collect metrics
	r.Use(mw.Logging(logger))          // Log all requests
	r.Use(middleware.Recoverer)        // Recover from panics
	r.Use(mw.RateLimit(deps.Limiter))  // Rate limiting

	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Performance.Registry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", queryHandler.Query)
		r.Get("/stats", app.statsHandler())
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(deps Deps, logger *zap.Logger) *chi.Mux {
	return NewApp(deps, logger).Router
}

func (app *App) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"performance": app.perf.Summary(),
			"rate_limits": app.limiter.AllUsageStats(),
			"build":       buildconfig.VersionInfo(),
			"go_version":  runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
