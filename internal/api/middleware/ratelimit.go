package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/mpaguilar/msa-toy/internal/resilience"
)

const rateLimitKeyPrefix = "http:"

// RateLimit returns middleware that limits requests per client IP, one token
// bucket per address in the shared limiter.
func RateLimit(limiter *resilience.TokenBucketLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Consume(rateLimitKeyPrefix + clientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is RemoteAddr without the port. chi's RealIP middleware has already
// replaced RemoteAddr when a proxy header is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
