package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/akeren/submission-history/config"
	"github.com/akeren/submission-history/internal/log"
	"github.com/akeren/submission-history/pkg/client"
	"github.com/akeren/submission-history/pkg/migrations"
	"github.com/akeren/submission-history/pkg/utils"
)

const defaultAPIBaseURL = "http://localhost:8080"

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger)

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "migrate":
		res, err := runMigrate(logger)
		if err != nil {
			logger.Error("Database migration failed", "error", err.Error())
			os.Exit(1)
		}
		fmt.Printf("schema at version %d (applied: %t)\n", res.Version, res.Applied)

	case "submit":
		if len(args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: cli submit <date> <first_name> <last_name>")
			os.Exit(1)
		}
		os.Exit(runSubmit(newAPIClient(), args[1], args[2], args[3]))

	case "history":
		os.Exit(runHistory(newAPIClient()))

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func runMigrate(logger *log.Logger) (migrations.Result, error) {
	dbCfg := config.NewDBConfigFromEnv()

	db, err := config.NewDatabase(logger, dbCfg)
	if err != nil {
		return migrations.Result{}, fmt.Errorf("connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return migrations.Result{}, fmt.Errorf("sql handle: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close SQL DB after migration", "error", err.Error())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return migrations.Up(ctx, sqlDB, migrations.Config{
		Driver: dbCfg.Driver,
		Dir:    utils.GetEnvTrimmed("MIGRATIONS_DIR"),
		Logger: logger,
	})
}

func newAPIClient() *client.Client {
	return client.New(utils.GetEnvTrimmedOrDefault("API_BASE_URL", defaultAPIBaseURL))
}

func printUsage() {
	fmt.Println("Usage: cli <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate                              Apply migrations/<DB_DRIVER> to the configured database and exit")
	fmt.Println("  submit <date> <first_name> <last_name>  Post a submission to API_BASE_URL")
	fmt.Println("  history                              Print the latest submissions from API_BASE_URL")
}
