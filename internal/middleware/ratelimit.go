package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dealpicks/affiliate-engine/internal/config"
	"github.com/dealpicks/affiliate-engine/internal/metrics"
)

// RateLimitMiddleware implements token bucket rate limiting: one
// global bucket for the admin/API surface and a smaller per-IP bucket
// for the public tracking endpoints, which take unauthenticated
// traffic straight from product pages.
type RateLimitMiddleware struct {
	cfg     config.RateLimitConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	global  *rate.Limiter

	mu         sync.RWMutex
	ipLimiters map[string]*rate.Limiter
}

// NewRateLimitMiddleware creates a new rate limiting middleware.
func NewRateLimitMiddleware(cfg config.RateLimitConfig, m *metrics.Metrics, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		global:     rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		ipLimiters: make(map[string]*rate.Limiter),
	}
}

// Handler wraps an http.Handler with rate limiting.
func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if isTrackingEndpoint(r.URL.Path) {
			ip := clientIP(r)
			if !rl.ipLimiter(ip).Allow() {
				rl.logger.Warn("per-IP rate limit exceeded",
					zap.String("ip", ip),
					zap.String("path", r.URL.Path),
				)
				rl.metrics.RecordRateLimitHit("tracking")
				rl.tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !rl.global.Allow() {
			rl.logger.Warn("rate limit exceeded",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			rl.metrics.RecordRateLimitHit("global")
			rl.tooManyRequests(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CleanupIPLimiters drops accumulated per-IP limiters. Invoked
// periodically from main; token buckets refill anyway, this just
// bounds the map.
func (rl *RateLimitMiddleware) CleanupIPLimiters() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.ipLimiters = make(map[string]*rate.Limiter)
}

func isTrackingEndpoint(path string) bool {
	return strings.HasPrefix(path, "/affiliate/track-")
}

// ipLimiter returns or creates the limiter for the given IP. Per-IP
// buckets are a tenth of the global budget.
func (rl *RateLimitMiddleware) ipLimiter(ip string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.ipLimiters[ip]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists = rl.ipLimiters[ip]; exists {
		return limiter
	}

	rps := rl.cfg.RPS / 10
	burst := rl.cfg.Burst / 10
	if rps < 1 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	limiter = rate.NewLimiter(rate.Limit(rps), burst)
	rl.ipLimiters[ip] = limiter
	return limiter
}

// clientIP extracts the client IP, honoring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIP is the exported form used by handlers that enrich click
// events.
func ClientIP(r *http.Request) string {
	return clientIP(r)
}

func (rl *RateLimitMiddleware) tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded"}`))
}
