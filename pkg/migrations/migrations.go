// Package migrations applies the versioned SQL files under migrations/<driver> with golang-migrate.
// The server never runs it; the CLI's migrate command does.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultTable = "schema_migrations"
)

type migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	if cfg.Driver == DriverSQLite {
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: cfg.MigrationsTable})
	}
	return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
}

var migratorFactory = func(sourceURL, databaseName string, driver database.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, databaseName, driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type Config struct {
	// Driver is "postgres" (default) or "sqlite".
	Driver string
	// Dir defaults to migrations/<driver>.
	Dir             string
	MigrationsTable string
	Logger          Logger
}

// Result describes the schema after Up. Version is zero when no migration was ever applied.
type Result struct {
	Version uint
	Applied bool
}

func (cfg Config) normalized() (Config, error) {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverSQLite {
		return cfg, fmt.Errorf("migrations: unsupported driver %q", cfg.Driver)
	}

	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = filepath.Join("migrations", cfg.Driver)
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = defaultTable
	}
	return cfg, nil
}

func (cfg Config) info(msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Info(msg, args...)
	}
}

func (cfg Config) warn(msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, args...)
	}
}

// fileSourceURL turns dir into an absolute file:// URL; ToSlash keeps Windows paths valid.
func fileSourceURL(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("migrations: resolve dir: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// Up applies every pending migration in cfg.Dir. A cancelled ctx closes the migrator, which is the
// only interruption golang-migrate supports.
func Up(ctx context.Context, db *sql.DB, cfg Config) (Result, error) {
	if db == nil {
		return Result{}, errors.New("migrations: db is nil")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cfg, err := cfg.normalized()
	if err != nil {
		return Result{}, err
	}

	sourceURL, err := fileSourceURL(cfg.Dir)
	if err != nil {
		return Result{}, err
	}

	driver, err := driverFactory(db, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("migrations: %s driver: %w", cfg.Driver, err)
	}

	m, err := migratorFactory(sourceURL, cfg.Driver, driver)
	if err != nil {
		return Result{}, fmt.Errorf("migrations: init: %w", err)
	}

	var once sync.Once
	closeMigrator := func() {
		once.Do(func() {
			srcErr, dbErr := m.Close()
			if srcErr != nil {
				cfg.warn("Migration source close failed", "error", srcErr)
			}
			if dbErr != nil {
				cfg.warn("Migration database close failed", "error", dbErr)
			}
		})
	}
	defer closeMigrator()

	cfg.info("Applying SQL migrations", "driver", cfg.Driver, "source", sourceURL, "table", cfg.MigrationsTable)

	done := make(chan error, 1)
	go func() { done <- m.Up() }()

	var upErr error
	select {
	case <-ctx.Done():
		closeMigrator()
		return Result{}, ctx.Err()
	case upErr = <-done:
	}

	applied := true
	switch {
	case errors.Is(upErr, migrate.ErrNoChange):
		applied = false
	case upErr != nil:
		return Result{}, fmt.Errorf("migrations: up: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Result{}, fmt.Errorf("migrations: read version: %w", err)
	}
	if dirty {
		return Result{}, fmt.Errorf("migrations: schema left dirty at version %d", version)
	}

	if applied {
		cfg.info("Migrations applied", "version", version)
	} else {
		cfg.info("Schema already up to date", "version", version)
	}

	return Result{Version: version, Applied: applied}, nil
}
