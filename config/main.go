package config

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/submission-history/config/router"
	"github.com/akeren/submission-history/internal/log"
	"github.com/akeren/submission-history/internal/models"
	"github.com/akeren/submission-history/pkg/constants"
	"github.com/akeren/submission-history/pkg/utils"
	"gorm.io/gorm"
)

// ApplicationConfig aggregates the process-wide resources built at start-up. Cleanup releases them.
type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	// SubmitMaxDelay bounds the simulated processing latency of a submission. Zero disables it.
	SubmitMaxDelay time.Duration
	// SubmitRateLimitRequests is the per-client POST /submit allowance per minute.
	SubmitRateLimitRequests int
	// StaticDir, when set, is served as a single-page app for unmatched GET routes.
	StaticDir string
}

func NewAppConfig() *AppConfig {
	cfg := &AppConfig{
		RateLimitRequests:       utils.GetEnvPositiveIntOrDefault("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:         utils.GetEnvPositiveDurationOrDefault("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow),
		RequestTimeout:          utils.GetEnvPositiveDurationOrDefault("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		SubmitMaxDelay:          utils.GetEnvDurationOrDefault("SUBMIT_MAX_DELAY", constants.DefaultSubmitMaxDelay),
		SubmitRateLimitRequests: utils.GetEnvPositiveIntOrDefault("SUBMIT_RATE_LIMIT_REQUESTS", constants.SubmitRequestsPerMinute),
		StaticDir:               utils.GetEnvTrimmed("STATIC_DIR"),
	}

	// A submission sleeps before it is handled; the request deadline must outlive the longest delay.
	if cfg.RequestTimeout <= cfg.SubmitMaxDelay {
		cfg.RequestTimeout = cfg.SubmitMaxDelay + 5*time.Second
	}

	return cfg
}

// Cleanup stops accepting traffic first and flushes traces last.
func (ac *ApplicationConfig) Cleanup() {
	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	_ = CloseCache(ac.Cache, ac.Logger)

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to flush traces", "error", err)
		}
	}

	ac.Logger.Info("Application cleanup completed")
}

// LoadApplicationConfiguration reads the environment and opens every backing resource. Resources opened
// before a failure are released before the error is returned.
func LoadApplicationConfiguration(ctx context.Context, logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	ac := &ApplicationConfig{Logger: logger, Config: NewAppConfig()}

	var err error
	if ac.TracingShutdown, err = SetupTracing(logger); err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	if ac.DB, err = NewDatabase(logger, NewDBConfigFromEnv()); err != nil {
		ac.Cleanup()
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, ac.DB, models.ModelRegistry...); err != nil {
			ac.Cleanup()
			return nil, err
		}
	}

	ac.Cache = NewCacheConfig().ConnectOrNil(ctx, logger)

	ac.RouterService = router.CreateRouterService(logger, GetRedisClient(ac.Cache), &router.RouterConfig{
		RateLimitRequests: ac.Config.RateLimitRequests,
		RateLimitWindow:   ac.Config.RateLimitWindow,
		RequestTimeout:    ac.Config.RequestTimeout,
		StaticDir:         ac.Config.StaticDir,
	})

	logger.Info("Application configuration loaded",
		"db_driver", ac.DB.Dialector.Name(),
		"redis", ac.Cache != nil,
		"submit_max_delay", ac.Config.SubmitMaxDelay.String(),
		"request_timeout", ac.Config.RequestTimeout.String(),
	)

	return ac, nil
}
