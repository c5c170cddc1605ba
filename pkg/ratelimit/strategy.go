package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akeren/submission-history/pkg/circuitbreaker"
	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// RateLimiter decides per client key whether a request must be rejected.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(ctx context.Context, key string) (bool, error)
	Close() error
}

// InMemoryRateLimiter is a per-key token bucket local to this process.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration
	perKey   rate.Limit

	mu      sync.Mutex
	buckets map[string]*bucket
	checks  uint64
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

// sweepEvery is how many checks pass between sweeps of idle buckets.
const sweepEvery = 1024

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		perKey:   rate.Limit(float64(requests) / window.Seconds()),
		buckets:  make(map[string]*bucket),
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(r.perKey, r.requests)}
		r.buckets[key] = b
	}
	b.lastSeen = now

	if r.checks++; r.checks%sweepEvery == 0 {
		r.sweep(now.Add(-2 * r.window))
	}

	return !b.AllowN(now, 1), nil
}

// sweep drops buckets idle since before cutoff. Callers hold mu.
func (r *InMemoryRateLimiter) sweep(cutoff time.Time) {
	for key, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

// slidingWindow trims a per-key sorted set to the window and admits the caller while it holds fewer
// than limit members. Returns 1 when the caller is limited.
var slidingWindow = redis.NewScript(`
local key, now, window, limit, ttl, member = KEYS[1], tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), ARGV[5]
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
if redis.call('ZCARD', key) >= limit then
	return 1
end
redis.call('ZADD', key, now, member)
redis.call('EXPIRE', key, ttl)
return 0
`)

const redisKeyPrefix = "submissions:ratelimit:"

// RedisRateLimiter is a sliding-window limiter shared by every replica.
type RedisRateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	logger   Logger
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, logger Logger) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, requests: requests, window: window, logger: logger}
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisRateLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	fullKey := redisKeyPrefix + strings.TrimPrefix(key, redisKeyPrefix)
	ttl := max(int64((2 * r.window).Seconds()), 1)

	res, err := slidingWindow.Run(ctx, r.client, []string{fullKey},
		time.Now().UnixMilli(), r.window.Milliseconds(), r.requests, ttl, uniqueMember(),
	).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script failed", "key", fullKey, "error", err)
		}
		return false, fmt.Errorf("rate limiter redis: %w", err)
	}

	return res == 1, nil
}

// Close is a no-op; the Redis client belongs to the application config.
func (r *RedisRateLimiter) Close() error {
	return nil
}

func uniqueMember() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FallbackRateLimiter consults the primary limiter through a circuit breaker and answers from the
// fallback while the breaker is open or the primary errors.
type FallbackRateLimiter struct {
	primary  RateLimiter
	fallback RateLimiter
	breaker  circuitbreaker.CircuitBreaker
	logger   Logger
}

func NewFallbackRateLimiter(primary, fallback RateLimiter, breaker circuitbreaker.CircuitBreaker, logger Logger) *FallbackRateLimiter {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(nil)
	}
	return &FallbackRateLimiter{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (f *FallbackRateLimiter) GetLimitDetails() (int, time.Duration) {
	return f.primary.GetLimitDetails()
}

func (f *FallbackRateLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	var limited bool

	err := f.breaker.Call(func() error {
		var err error
		limited, err = f.primary.IsLimited(ctx, key)
		return err
	})
	if err == nil {
		return limited, nil
	}

	if f.logger != nil {
		f.logger.Warn("Primary rate limiter unavailable, using fallback", "error", err, "breaker", f.breaker.State().String())
	}

	return f.fallback.IsLimited(ctx, key)
}

func (f *FallbackRateLimiter) Close() error {
	if err := f.primary.Close(); err != nil {
		return err
	}
	return f.fallback.Close()
}

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Redis    *redis.Client // Optional, if nil uses in-memory
	Logger   Logger        // Optional logger for Redis operations
}

// NewRateLimiter builds an in-memory limiter, or a Redis limiter backed by an in-memory fallback.
func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	inMemory := NewInMemoryRateLimiter(config.Requests, config.Window)
	if config.Redis == nil {
		return inMemory
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	if config.Logger != nil {
		logger := config.Logger
		breakerCfg.OnStateChange = func(from, to circuitbreaker.CircuitState) {
			logger.Warn("Redis rate limiter breaker changed state", "from", from.String(), "to", to.String())
		}
	}

	return NewFallbackRateLimiter(
		NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Logger),
		inMemory,
		circuitbreaker.NewCircuitBreaker(breakerCfg),
		config.Logger,
	)
}
