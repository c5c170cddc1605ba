package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/akeren/submission-history/config/router"
	"github.com/akeren/submission-history/internal/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	healthRequestsPerMinute = 10
	probeTimeout            = 2 * time.Second
)

const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDisabled = "disabled"
)

// Pinger is a dependency probed by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthReport struct {
	Database      string `json:"database"`
	Cache         string `json:"cache"`
	Driver        string `json:"driver"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Healthy is false only when the record store is unreachable; Redis is optional.
func (r HealthReport) Healthy() bool {
	return r.Database == StatusUp
}

type healthController struct {
	db      *gorm.DB
	cache   Pinger
	logger  *log.Logger
	started time.Time
}

func newHealthController(deps Dependencies) *router.RESTController {
	ctrl := &healthController{
		db:      deps.DB,
		cache:   deps.Cache,
		logger:  deps.Logger,
		started: time.Now(),
	}

	return router.NewRESTController(
		"HealthController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.AddGetHandler(c, rs.NewRateLimiter(healthRequestsPerMinute, time.Minute), "health", ctrl.health)
		},
	)
}

func (ctrl *healthController) health(c *router.RequestContext) *router.ServiceResult {
	report := ctrl.probe(c.Request.Context(), router.GetLogger(c))

	if !report.Healthy() {
		return router.ErrorResult(http.StatusServiceUnavailable, "submission store unreachable", report)
	}

	return router.OKResult(report, "healthy")
}

// probe pings every dependency concurrently, each under its own deadline.
func (ctrl *healthController) probe(ctx context.Context, logger *log.Logger) HealthReport {
	report := HealthReport{
		Database:      StatusDown,
		Cache:         StatusDisabled,
		Driver:        ctrl.db.Dialector.Name(),
		UptimeSeconds: int64(time.Since(ctrl.started).Seconds()),
	}

	var g errgroup.Group

	g.Go(func() error {
		report.Database = ping(ctx, databasePinger{ctrl.db}, logger, "database")
		return nil
	})

	if ctrl.cache != nil {
		g.Go(func() error {
			report.Cache = ping(ctx, ctrl.cache, logger, "cache")
			return nil
		})
	}

	_ = g.Wait()

	return report
}

func ping(ctx context.Context, p Pinger, logger *log.Logger, name string) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		logger.Warn("Health probe failed", "dependency", name, "error", err)
		return StatusDown
	}

	return StatusUp
}

type databasePinger struct{ db *gorm.DB }

func (d databasePinger) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
