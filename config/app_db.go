package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/submission-history/internal/log"
	"github.com/akeren/submission-history/pkg/constants"
	"github.com/akeren/submission-history/pkg/retry"
	"github.com/akeren/submission-history/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type DBConfig struct {
	Driver          string // "sqlite" (default) or "postgres"
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string // used when POSTGRES_SSLMODE is unset
}

// NewDBConfigFromEnv reads DB_DRIVER and SUBMISSIONS_DB_PATH. SQLite always gets one connection;
// Postgres pool sizes come from DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS and DB_CONN_MAX_LIFETIME.
func NewDBConfigFromEnv() *DBConfig {
	cfg := &DBConfig{
		Driver:     strings.ToLower(sanitizeEnv(utils.GetEnvTrimmedOrDefault("DB_DRIVER", constants.DriverSQLite))),
		SQLitePath: sanitizeEnv(utils.GetEnvTrimmedOrDefault("SUBMISSIONS_DB_PATH", constants.DefaultSQLitePath)),
		SSLMode:    "require",
	}

	if cfg.Driver == constants.DriverSQLite {
		// One connection serializes writes and gives read-after-write on the same handle.
		cfg.MaxIdleConns, cfg.MaxOpenConns = 1, 1
		return cfg
	}

	cfg.MaxOpenConns = utils.GetEnvPositiveIntOrDefault("DB_MAX_OPEN_CONNS", 25)
	cfg.MaxIdleConns = min(utils.GetEnvPositiveIntOrDefault("DB_MAX_IDLE_CONNS", 5), cfg.MaxOpenConns)
	cfg.ConnMaxLifetime = utils.GetEnvPositiveDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	return cfg
}

func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = NewDBConfigFromEnv()
	}

	dialector, err := newDialector(logger, cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		logger.Error("Failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Error("Failed to get database instance", "error", err)
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := retry.NewExponentialBackoff(nil).Execute(ctx, sqlDB.PingContext); err != nil {
		logger.Error("Database ping failed", "error", err)
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established successfully", "driver", cfg.Driver)
	return gdb, nil
}

func newDialector(logger *log.Logger, cfg *DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", constants.DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = constants.DefaultSQLitePath
		}
		logger.Info("Using SQLite database", "path", path)
		return sqlite.Open(sqliteDSN(path)), nil
	case constants.DriverPostgres:
		dsn, err := buildPostgresDSNFromEnv(logger, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: %s, %s)", cfg.Driver, constants.DriverSQLite, constants.DriverPostgres)
	}
}

func sqliteDSN(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL"
}

type postgresEnv struct {
	host, port, user, password, dbName, sslMode string
}

func readPostgresEnv() postgresEnv {
	get := func(key string) string { return sanitizeEnv(utils.GetEnvOrDefault(key, "")) }

	return postgresEnv{
		host:     get("POSTGRES_HOST"),
		port:     get("POSTGRES_PORT"),
		user:     get("POSTGRES_USER"),
		password: get("POSTGRES_PASSWORD"),
		dbName:   get("POSTGRES_DB_NAME"),
		sslMode:  get("POSTGRES_SSLMODE"),
	}
}

func (e postgresEnv) missing() []string {
	var missing []string
	for _, v := range []struct{ key, val string }{
		{"POSTGRES_HOST", e.host},
		{"POSTGRES_PORT", e.port},
		{"POSTGRES_USER", e.user},
		{"POSTGRES_DB_NAME", e.dbName},
	} {
		if v.val == "" {
			missing = append(missing, v.key)
		}
	}
	return missing
}

// url renders a postgres:// DSN; userinfo and query escaping keep arbitrary passwords intact.
func (e postgresEnv) url() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(e.user, e.password),
		Host:     net.JoinHostPort(e.host, e.port),
		Path:     "/" + e.dbName,
		RawQuery: url.Values{"sslmode": {e.sslMode}}.Encode(),
	}
	return u.String()
}

// buildPostgresDSNFromEnv prefers APP_DATABASE_URL and otherwise assembles a URL from POSTGRES_*.
func buildPostgresDSNFromEnv(logger *log.Logger, cfg *DBConfig) (string, error) {
	if databaseURL := sanitizeEnv(utils.GetEnvOrDefault("APP_DATABASE_URL", "")); databaseURL != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return databaseURL, nil
	}

	env := readPostgresEnv()
	if env.sslMode == "" {
		env.sslMode = cfg.SSLMode
	}

	if missing := env.missing(); len(missing) > 0 {
		return "", fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	if _, err := strconv.ParseUint(env.port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid POSTGRES_PORT %q: %w", env.port, err)
	}

	logger.Info("Connecting to Postgres", "host", env.host, "port", env.port, "user", env.user, "dbname", env.dbName, "sslmode", env.sslMode)

	return env.url(), nil
}

func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	return s
}

// gormLogWriter routes gorm's slow-query and error lines into the structured logger.
type gormLogWriter struct {
	logger *log.Logger
}

func (w gormLogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn("gorm", "detail", fmt.Sprintf(format, args...))
}

func newGormLogger(logger *log.Logger) gormlogger.Interface {
	return gormlogger.New(gormLogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...interface{}) error {
	if db == nil {
		logger.Error("Cannot migrate: db is empty")
		return fmt.Errorf("cannot migrate: db is empty")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed successfully")

	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	} else {
		logger.Info("Database closed successfully")
	}
}
