package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/observability"
)

// DefaultWindow is the fixed window length used when no explicit window is
// configured.
const DefaultWindow = time.Second

// DistributedRateLimiter enforces a fixed-window limit in Redis so the limit
// holds across replicas.
type DistributedRateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewDistributedRateLimiter creates a Redis-backed limiter allowing limit
// requests per window per key.
func NewDistributedRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *DistributedRateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
		prefix: "openbay:ratelimit",
	}
}

// Allow checks the counter for key. On Redis errors it fails open and
// returns the error so the caller can log it.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis rate limit check: %w", err)
	}

	return incr.Val() <= int64(rl.limit), nil
}

// Reset clears the counter for a key.
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// DistributedRateLimit enforces the Redis-backed limit per principal or
// client IP. metrics may be nil.
func DistributedRateLimit(limiter *DistributedRateLimiter, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limitKey(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// Fail open so a Redis outage does not take the API down.
				observability.FromContext(r.Context()).WithError(err).Warn("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if metrics != nil {
					metrics.ObserveRateLimitDrop("distributed")
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", limiter.window.Seconds()))
				httputil.WriteTooManyRequests(w, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
