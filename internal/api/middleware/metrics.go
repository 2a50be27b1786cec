package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/mpaguilar/msa-toy/internal/metrics"
)

// MetricsCollector counts requests and errors, and forwards each response
// status to the Prometheus collectors when perf is set.
type MetricsCollector struct {
	requestCount *atomic.Int64
	errorCount   *atomic.Int64
	perf         *metrics.Performance
}

func NewMetricsCollector(requestCount, errorCount *atomic.Int64, perf *metrics.Performance) *MetricsCollector {
	return &MetricsCollector{
		requestCount: requestCount,
		errorCount:   errorCount,
		perf:         perf,
	}
}

func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requestCount.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		// 4xx and 5xx
		if rw.statusCode >= 400 {
			mc.errorCount.Add(1)
		}
		if mc.perf != nil {
			mc.perf.RecordHTTPRequest(rw.statusCode)
		}
	})
}
