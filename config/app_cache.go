package config

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/akeren/submission-history/internal/log"
	pkgredis "github.com/akeren/submission-history/pkg/redis"
	"github.com/akeren/submission-history/pkg/retry"
	"github.com/akeren/submission-history/pkg/utils"
	"github.com/go-redis/redis/v8"
)

// ErrCacheNotConfigured is returned when neither REDIS_URL nor REDIS_HOST is set.
var ErrCacheNotConfigured = errors.New("cache: neither REDIS_URL nor REDIS_HOST is set")

// Cache is the optional Redis connection. History is never cached; the connection backs the shared
// rate limiter and the health check.
type Cache interface {
	Ping(ctx context.Context) error
	Close() error
}

type redisClientProvider interface {
	GetClient() *redis.Client
}

type CacheConfig struct {
	redis pkgredis.Config
}

func NewCacheConfig() *CacheConfig {
	db, err := strconv.Atoi(utils.GetEnvTrimmedOrDefault("REDIS_DB", "0"))
	if err != nil || db < 0 {
		db = 0
	}

	return &CacheConfig{redis: pkgredis.Config{
		URL:      utils.GetEnvTrimmed("REDIS_URL"),
		Host:     utils.GetEnvTrimmed("REDIS_HOST"),
		Port:     utils.GetEnvTrimmedOrDefault("REDIS_PORT", "6379"),
		Password: utils.GetEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       db,
	}}
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.redis.URL != "" || cc.redis.Host != ""
}

// Connect dials Redis, retrying transient failures with backoff.
func (cc *CacheConfig) Connect(ctx context.Context, logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	policy := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2,
		Jitter:      0.2,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logger.Warn("Redis not reachable yet", "attempt", attempt, "retry_in", wait.String(), "error", err)
		},
	})

	var cache *pkgredis.RedisCache
	err := policy.Execute(ctx, func(context.Context) error {
		var dialErr error
		cache, dialErr = pkgredis.NewRedisCache(&cc.redis)
		return dialErr
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Redis connected")
	return cache, nil
}

// ConnectOrNil degrades to no cache when Redis is unset or unreachable; rate limiting then stays in-memory.
func (cc *CacheConfig) ConnectOrNil(ctx context.Context, logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("Redis not configured; rate limiting stays in-memory")
		return nil
	}

	cache, err := cc.Connect(ctx, logger)
	if err != nil {
		logger.Warn("Proceeding without Redis; rate limiting stays in-memory", "error", err)
		return nil
	}

	return cache
}

// GetRedisClient exposes the underlying client for the shared rate limiter. Nil when there is no cache.
func GetRedisClient(cache Cache) *redis.Client {
	if provider, ok := cache.(redisClientProvider); ok {
		return provider.GetClient()
	}
	return nil
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close Redis connection", "error", err)
		return err
	}

	logger.Info("Redis connection closed")
	return nil
}
