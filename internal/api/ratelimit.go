package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter enforces a per-client requests-per-minute budget. With a Redis
// client the counters are shared across replicas; without one a local
// per-process counter is used. A failing Redis fails open.
type RateLimiter struct {
	redis          *redis.Client
	logger         *zap.Logger
	perMinute      int
	includeHeaders bool

	mu     sync.Mutex
	local  map[string]int
	window time.Time
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter. redisClient may be nil.
func NewRateLimiter(redisClient *redis.Client, perMinute int, includeHeaders bool, logger *zap.Logger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 120
	}
	return &RateLimiter{
		redis:          redisClient,
		logger:         logger,
		perMinute:      perMinute,
		includeHeaders: includeHeaders,
		local:          make(map[string]int),
		now:            time.Now,
	}
}

var incrScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return current
`)

// take consumes one request slot for clientID and returns the running count
// inside the current minute window.
func (rl *RateLimiter) take(ctx context.Context, clientID string) int {
	if rl.redis != nil {
		key := "threatdesk:ratelimit:" + clientID + ":minute"
		count, err := incrScript.Run(ctx, rl.redis, []string{key}, 60000).Int()
		if err != nil {
			rl.logger.Warn("rate limit check failed, allowing request", zap.Error(err))
			return 1
		}
		return count
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	minute := rl.now().Truncate(time.Minute)
	if !minute.Equal(rl.window) {
		rl.window = minute
		rl.local = make(map[string]int)
	}
	rl.local[clientID]++
	return rl.local[clientID]
}

// Middleware returns the HTTP middleware enforcing the limit.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := rl.take(r.Context(), clientIP(r))
			remaining := rl.perMinute - count
			if remaining < 0 {
				remaining = 0
			}

			if rl.includeHeaders {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}

			if count > rl.perMinute {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":"rate_limit_exceeded","retry_after":60}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
