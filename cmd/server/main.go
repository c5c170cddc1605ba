package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/akeren/submission-history/config"
	"github.com/akeren/submission-history/domain"
	"github.com/akeren/submission-history/internal/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func wantsAutoMigrate(args []string) bool {
	return slices.ContainsFunc(args, func(arg string) bool {
		a := strings.ToLower(arg)
		return a == "--auto-migrate" || a == "-m"
	})
}

func run(args []string) int {
	logger := log.NewLoggerWithJSONOutput()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appConfig, err := config.LoadApplicationConfiguration(ctx, logger, wantsAutoMigrate(args))
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err.Error())
		return 1
	}
	defer appConfig.Cleanup()

	setupCtx, setupCancel := context.WithTimeout(ctx, 30*time.Second)
	err = domain.SetupCoreDomain(setupCtx, appConfig)
	setupCancel()
	if err != nil {
		logger.Error("Failed to set up domain", "error", err.Error())
		return 1
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received; draining in-flight submissions")

	// A submission may still be inside its processing delay.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Config.SubmitMaxDelay+30*time.Second)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return 1
	}

	logger.Info("HTTP server shut down gracefully")
	return 0
}
