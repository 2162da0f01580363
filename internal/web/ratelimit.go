package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/eqviz/internal/web/middleware"
	"github.com/redis/go-redis/v9"
)

var errRateLimited = errors.New("rate limit exceeded")

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	// Allow consumes one request for key. When the limit is reached it
	// returns false and how long until the window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// memoryLimiter is a per-process fixed-window counter.
type memoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newMemoryLimiter creates a limiter allowing rate requests per window.
// Call Stop to end the cleanup goroutine.
func newMemoryLimiter(rate int, window time.Duration) *memoryLimiter {
	rl := &memoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries once per window.
func (rl *memoryLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if rl.now().Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *memoryLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *memoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[key] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true, 0, nil
	}

	if v.tokens <= 0 {
		return false, rl.window - now.Sub(v.lastReset), nil
	}

	v.tokens--
	return true, 0, nil
}

// RedisLimiter shares fixed-window counters across instances.
type RedisLimiter struct {
	client *redis.Client
	rate   int
	window time.Duration
	prefix string
}

// NewRedisLimiter allows rate requests per window for each key, namespaced
// by prefix so several limits can share one Redis database.
func NewRedisLimiter(client *redis.Client, prefix string, rate int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, rate: rate, window: window, prefix: prefix}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := rl.prefix + key

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, rl.window)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() > int64(rl.rate) {
		reset := ttl.Val()
		if reset < 0 {
			reset = rl.window
		}
		return false, reset, nil
	}
	return true, 0, nil
}

// rateLimit rejects requests over the limit with 429. A failing limiter
// backend lets the request through.
func (s *Server) rateLimit(l RateLimiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + middleware.ClientIP(r)

			ok, retry, err := l.Allow(r.Context(), key)
			if err != nil {
				slog.Warn("rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				secs := int(retry.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
