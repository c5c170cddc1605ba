package domain

import (
	"context"

	"github.com/akeren/submission-history/config"
	"github.com/akeren/submission-history/domain/monitoring"
	"github.com/akeren/submission-history/domain/submission"
)

// SetupCoreDomain creates the submissions table up front and mounts every controller. Startup fails
// if the store cannot be initialized.
func SetupCoreDomain(ctx context.Context, appConfig *config.ApplicationConfig) error {
	submissions := submission.NewSubmissionServiceFactory(appConfig.DB, appConfig.Logger, submission.Settings{
		MaxDelay:                appConfig.Config.SubmitMaxDelay,
		SubmitRequestsPerMinute: appConfig.Config.SubmitRateLimitRequests,
	})

	if err := submissions.CreateRepository().Initialize(ctx); err != nil {
		appConfig.Logger.Error("Failed to initialize submission store", "error", err)
		return err
	}

	health := monitoring.Dependencies{DB: appConfig.DB, Logger: appConfig.Logger}
	if appConfig.Cache != nil {
		health.Cache = appConfig.Cache
	}

	appConfig.RouterService.MountController(monitoring.NewMonitoringControllerFactory(health).CreateController())
	appConfig.RouterService.MountController(submissions.CreateController())

	return nil
}
