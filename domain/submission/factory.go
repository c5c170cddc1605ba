package submission

import (
	"time"

	"github.com/akeren/submission-history/config/router"
	"github.com/akeren/submission-history/internal/log"
	"gorm.io/gorm"
)

type SubmissionServiceFactory interface {
	CreateRepository() SubmissionRepository
	CreateService() SubmissionService
	CreateController() *router.RESTController
}

// Settings are the tunables of the submission flow. Zero values fall back to the package defaults,
// except MaxDelay where zero disables the delay.
type Settings struct {
	MaxDelay                time.Duration
	SubmitRequestsPerMinute int
}

type DefaultSubmissionServiceFactory struct {
	db         *gorm.DB
	logger     *log.Logger
	settings   Settings
	repository SubmissionRepository
}

// NewSubmissionServiceFactory wires one repository shared by every service it creates, so the
// initialized flag is tracked once per process.
func NewSubmissionServiceFactory(db *gorm.DB, logger *log.Logger, settings Settings) SubmissionServiceFactory {
	return &DefaultSubmissionServiceFactory{
		db:       db,
		logger:   logger,
		settings: settings,
	}
}

func (f *DefaultSubmissionServiceFactory) CreateRepository() SubmissionRepository {
	if f.repository == nil {
		f.repository = NewSubmissionRepository(f.db)
	}
	return f.repository
}

func (f *DefaultSubmissionServiceFactory) CreateService() SubmissionService {
	return NewSubmissionService(f.logger, f.CreateRepository(), ServiceOptions{MaxDelay: f.settings.MaxDelay})
}

func (f *DefaultSubmissionServiceFactory) CreateController() *router.RESTController {
	return NewSubmissionController(f.CreateService(), f.settings.SubmitRequestsPerMinute)
}
