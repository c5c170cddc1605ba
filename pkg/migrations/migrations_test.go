package migrations

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu    sync.Mutex
	infos []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(string, ...any) {}

func (l *recordingLogger) logged(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.infos, msg)
}

type fakeMigrator struct {
	upErr      error
	version    uint
	dirty      bool
	versionErr error
}

func (m *fakeMigrator) Up() error                    { return m.upErr }
func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, m.versionErr }
func (m *fakeMigrator) Close() (error, error)        { return nil, nil }

// hangingMigrator blocks in Up until Close is called.
type hangingMigrator struct {
	release chan struct{}
	once    sync.Once
	closed  atomic.Bool
}

func (m *hangingMigrator) Up() error {
	<-m.release
	return nil
}

func (m *hangingMigrator) Version() (uint, bool, error) { return 0, false, nil }

func (m *hangingMigrator) Close() (error, error) {
	m.once.Do(func() {
		m.closed.Store(true)
		close(m.release)
	})
	return nil, nil
}

type factoryCall struct {
	sourceURL    string
	databaseName string
	cfg          Config
}

func stubFactories(t *testing.T, m migrator, initErr error) *factoryCall {
	t.Helper()

	origDriver, origMigrator := driverFactory, migratorFactory
	t.Cleanup(func() { driverFactory, migratorFactory = origDriver, origMigrator })

	call := &factoryCall{}
	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		call.cfg = cfg
		return nil, nil
	}
	migratorFactory = func(sourceURL, databaseName string, _ database.Driver) (migrator, error) {
		call.sourceURL, call.databaseName = sourceURL, databaseName
		if initErr != nil {
			return nil, initErr
		}
		return m, nil
	}
	return call
}

func TestUp_RejectsNilDB(t *testing.T) {
	_, err := Up(context.Background(), nil, Config{})
	assert.Error(t, err)
}

func TestUp_RejectsUnsupportedDriver(t *testing.T) {
	stubFactories(t, &fakeMigrator{}, nil)

	_, err := Up(context.Background(), &sql.DB{}, Config{Driver: "mysql", Dir: t.TempDir()})
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestUp_CancelledBeforeStart(t *testing.T) {
	call := stubFactories(t, &fakeMigrator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, call.sourceURL, "migrator must not be created")
}

func TestUp_DeadlineClosesMigrator(t *testing.T) {
	m := &hangingMigrator{release: make(chan struct{})}
	stubFactories(t, m, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, m.closed.Load())
}

func TestUp_NoChangeReportsCurrentVersion(t *testing.T) {
	stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange, version: 1}, nil)
	logger := &recordingLogger{}

	res, err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger})

	require.NoError(t, err)
	assert.Equal(t, Result{Version: 1, Applied: false}, res)
	assert.True(t, logger.logged("Schema already up to date"))
}

func TestUp_AppliedReportsNewVersion(t *testing.T) {
	stubFactories(t, &fakeMigrator{version: 2}, nil)
	logger := &recordingLogger{}

	res, err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger})

	require.NoError(t, err)
	assert.Equal(t, Result{Version: 2, Applied: true}, res)
	assert.True(t, logger.logged("Migrations applied"))
}

func TestUp_EmptySourceHasNoVersion(t *testing.T) {
	stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange, versionErr: migrate.ErrNilVersion}, nil)

	res, err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})

	require.NoError(t, err)
	assert.Zero(t, res.Version)
}

func TestUp_DirtySchemaIsAnError(t *testing.T) {
	stubFactories(t, &fakeMigrator{version: 3, dirty: true}, nil)

	_, err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "dirty at version 3")
}

func TestUp_WrapsFailures(t *testing.T) {
	stubFactories(t, &fakeMigrator{upErr: errors.New("syntax error")}, nil)
	_, err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "migrations: up")

	stubFactories(t, nil, errors.New("boom"))
	_, err = Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "migrations: init")
}

func TestUp_Defaults(t *testing.T) {
	call := stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)

	_, err := Up(context.Background(), &sql.DB{}, Config{Driver: " SQLite "})
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, call.cfg.Driver)
	assert.Equal(t, DriverSQLite, call.databaseName)
	assert.Equal(t, defaultTable, call.cfg.MigrationsTable)
	assert.True(t, filepath.IsAbs(filepath.FromSlash(mustParse(t, call.sourceURL).Path)))
	assert.Contains(t, call.sourceURL, "/migrations/sqlite")
}

func TestUp_DirWithSpacesBecomesValidURL(t *testing.T) {
	call := stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)

	dir := filepath.Join(t.TempDir(), "my migrations dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	_, err := Up(context.Background(), &sql.DB{}, Config{Dir: dir})
	require.NoError(t, err)

	parsed := mustParse(t, call.sourceURL)
	abs, _ := filepath.Abs(dir)
	assert.Equal(t, "file", parsed.Scheme)
	assert.Equal(t, filepath.ToSlash(abs), parsed.Path)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
