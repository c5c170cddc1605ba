package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/akeren/submission-history/internal/log"
	"github.com/akeren/submission-history/pkg/utils"
	"github.com/joho/godotenv"
)

const AppEnvKey = "APP_ENV"

// Environments in which schema changes may be applied at start-up.
var devLikeEnvs = map[string]struct{}{
	"":            {},
	"dev":         {},
	"development": {},
	"local":       {},
	"test":        {},
	"testing":     {},
}

// InitializeEnvFile loads DOTENV_FILES (comma separated, default ".env") into the process
// environment without overriding variables that are already set. SKIP_DOTENV=true disables it.
func InitializeEnvFile(logger *log.Logger) {
	if utils.GetEnvBoolOrDefault("SKIP_DOTENV", false) {
		logger.Info("Skipping dotenv load", "reason", "SKIP_DOTENV=true")
		return
	}

	files := dotenvFiles(utils.GetEnvTrimmedOrDefault("DOTENV_FILES", ".env"))

	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Failed to load dotenv file", "file", file, "error", err.Error())
			}
			continue
		}
		loaded = append(loaded, file)
	}

	if len(loaded) == 0 {
		logger.Info("No dotenv file loaded; using process environment only")
		return
	}

	logger.Info("Environment variables loaded", "files", loaded)
}

func dotenvFiles(raw string) []string {
	var files []string
	for _, part := range strings.Split(raw, ",") {
		if f := strings.TrimSpace(part); f != "" {
			files = append(files, f)
		}
	}
	return files
}

func normalizeAppEnv(env string) string {
	return strings.ToLower(strings.TrimSpace(env))
}

func GetAppEnv() string {
	return normalizeAppEnv(utils.GetEnvOrDefault(AppEnvKey, ""))
}

// IsDevLikeEnv reports whether env names a local or test deployment.
func IsDevLikeEnv(env string) bool {
	_, ok := devLikeEnvs[normalizeAppEnv(env)]
	return ok
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	if IsDevLikeEnv(appEnv) {
		return nil
	}

	allowed := make([]string, 0, len(devLikeEnvs))
	for env := range devLikeEnvs {
		allowed = append(allowed, fmt.Sprintf("%q", env))
	}
	sort.Strings(allowed)

	return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: %s)", AppEnvKey, normalizeAppEnv(appEnv), strings.Join(allowed, ", "))
}
