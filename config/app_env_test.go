package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAutoMigrateAllowed_AllowsDevLikeEnvs(t *testing.T) {
	for _, env := range []string{"", "dev", "development", "local", "test", "testing", "DEV", "  Local  "} {
		assert.NoError(t, ValidateAutoMigrateAllowed(env), "env %q", env)
	}
}

func TestValidateAutoMigrateAllowed_RejectsProdAndOtherEnvs(t *testing.T) {
	for _, env := range []string{"prod", "production", "staging", "preprod", " Production ", "qa"} {
		assert.Error(t, ValidateAutoMigrateAllowed(env), "env %q", env)
	}
}

func TestNewAppConfig_Defaults(t *testing.T) {
	for _, key := range []string{"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "REQUEST_TIMEOUT", "SUBMIT_MAX_DELAY", "SUBMIT_RATE_LIMIT_REQUESTS", "STATIC_DIR"} {
		t.Setenv(key, "")
	}

	cfg := NewAppConfig()

	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3*time.Second, cfg.SubmitMaxDelay)
	assert.Equal(t, 30, cfg.SubmitRateLimitRequests)
	assert.Empty(t, cfg.StaticDir)
}

func TestNewAppConfig_Overrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("SUBMIT_MAX_DELAY", "0s")
	t.Setenv("SUBMIT_RATE_LIMIT_REQUESTS", "7")
	t.Setenv("STATIC_DIR", " ./public ")
	t.Setenv("REQUEST_TIMEOUT", "1s")

	cfg := NewAppConfig()

	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, time.Duration(0), cfg.SubmitMaxDelay)
	assert.Equal(t, 7, cfg.SubmitRateLimitRequests)
	assert.Equal(t, "./public", cfg.StaticDir)
	assert.Equal(t, time.Second, cfg.RequestTimeout)
}

func TestNewAppConfig_RequestTimeoutOutlivesSubmitDelay(t *testing.T) {
	t.Setenv("SUBMIT_MAX_DELAY", "20s")
	t.Setenv("REQUEST_TIMEOUT", "10s")

	cfg := NewAppConfig()

	assert.Greater(t, cfg.RequestTimeout, cfg.SubmitMaxDelay)
}

func TestValidateAutoMigrateAllowed_ErrorListsAllowedEnvs(t *testing.T) {
	err := ValidateAutoMigrateAllowed(" Production ")

	assert.ErrorContains(t, err, `APP_ENV="production"`)
	assert.ErrorContains(t, err, `"development"`)
}

func TestDotenvFiles(t *testing.T) {
	assert.Equal(t, []string{".env", ".env.local"}, dotenvFiles(" .env , ,.env.local "))
	assert.Empty(t, dotenvFiles(""))
}

func TestInitializeEnvFile_LoadsWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("SH_DOTENV_NEW=from-file\nSH_DOTENV_SET=from-file\n"), 0o600))

	t.Setenv("SKIP_DOTENV", "")
	t.Setenv("DOTENV_FILES", filepath.Join(dir, "missing.env")+","+file)
	t.Setenv("SH_DOTENV_SET", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("SH_DOTENV_NEW") })

	InitializeEnvFile(quietLogger())

	assert.Equal(t, "from-file", os.Getenv("SH_DOTENV_NEW"))
	assert.Equal(t, "from-process", os.Getenv("SH_DOTENV_SET"))
}

func TestInitializeEnvFile_SkipDotenv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("SH_DOTENV_SKIPPED=yes\n"), 0o600))

	t.Setenv("SKIP_DOTENV", "true")
	t.Setenv("DOTENV_FILES", file)

	InitializeEnvFile(quietLogger())

	_, found := os.LookupEnv("SH_DOTENV_SKIPPED")
	assert.False(t, found)
}
