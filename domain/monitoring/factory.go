package monitoring

import (
	"github.com/akeren/submission-history/config/router"
	"github.com/akeren/submission-history/internal/log"
	"gorm.io/gorm"
)

// Dependencies wires the health endpoint. Cache may be nil when Redis is not configured.
type Dependencies struct {
	DB     *gorm.DB
	Cache  Pinger
	Logger *log.Logger
}

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type defaultFactory struct {
	deps Dependencies
}

func NewMonitoringControllerFactory(deps Dependencies) MonitoringControllerFactory {
	return defaultFactory{deps: deps}
}

func (f defaultFactory) CreateController() *router.RESTController {
	return newHealthController(f.deps)
}
