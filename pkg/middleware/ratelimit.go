package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/observability"
)

// RateLimitConfig holds token bucket settings.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultRateLimitConfig allows 20 req/s with a burst of 40 per caller.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 20, Burst: 40}
}

// DefaultMaxKeys bounds how many distinct callers a limiter tracks at once.
const DefaultMaxKeys = 8192

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// RateLimiter is an in-process token bucket limiter. Buckets are held in an
// expiring LRU so idle callers do not accumulate.
type RateLimiter struct {
	config  RateLimitConfig
	buckets *expirable.LRU[string, *bucket]
	mu      sync.Mutex
}

// NewRateLimiter creates a limiter tracking up to maxKeys callers.
func NewRateLimiter(config RateLimitConfig, maxKeys int) *RateLimiter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &RateLimiter{
		config:  config,
		buckets: expirable.NewLRU[string, *bucket](maxKeys, nil, 10*time.Minute),
	}
}

// Allow reports whether the caller identified by key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, ok := rl.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: float64(rl.config.Burst), lastUpdate: time.Now()}
		rl.buckets.Add(key, b)
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens += elapsed * rl.config.RequestsPerSecond
	if b.tokens > float64(rl.config.Burst) {
		b.tokens = float64(rl.config.Burst)
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RateLimit enforces the local token bucket per principal, falling back to
// the client IP before authentication. metrics may be nil.
func RateLimit(limiter *RateLimiter, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limitKey(r)
			if !limiter.Allow(key) {
				if metrics != nil {
					metrics.ObserveRateLimitDrop("local")
				}
				writeRateLimited(w, limiter.config)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitKey(r *http.Request) string {
	if p, ok := authz.PrincipalFromContext(r.Context()); ok {
		return "user:" + p.ID
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func writeRateLimited(w http.ResponseWriter, cfg RateLimitConfig) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%.0f", cfg.RequestsPerSecond))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteTooManyRequests(w, "rate limit exceeded")
}
