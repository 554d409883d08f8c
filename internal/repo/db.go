// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, optional query tracing, and schema
// migrations.
package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// ErrUnknownDriver is returned by Open for a DB_DRIVER other than sqlite or postgres.
var ErrUnknownDriver = errors.New("unknown database driver")

// Options selects and tunes the database backend.
type Options struct {
	Driver  string // sqlite | postgres
	Path    string // SQLite file path
	URL     string // PostgreSQL DSN
	Tracing bool   // attach the OpenTelemetry GORM plugin
}

// Open dispatches to OpenSQLite or OpenPostgres and optionally enables tracing.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		db, err = OpenSQLite(opts.Path)
	case "postgres", "postgresql":
		db, err = OpenPostgres(opts.URL)
	default:
		return nil, ErrUnknownDriver
	}
	if err != nil {
		return nil, err
	}
	if opts.Tracing {
		if err := EnableTracing(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// sqlitePragmas are applied by the driver to every pooled connection.
// busy_timeout comes first so the WAL switch can wait out a concurrent
// opener. _txlock=immediate takes the write lock at BEGIN, so a transaction
// that reads before it writes waits for other writers instead of failing
// with SQLITE_BUSY on lock upgrade.
var sqlitePragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
	"_pragma=foreign_keys(1)",
	"_txlock=immediate",
}

// SQLiteDSN appends the connection pragmas to path, which may already carry
// query parameters.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(sqlitePragmas, "&")
}

// OpenSQLite opens (or creates) a SQLite database. Pragmas travel in the DSN
// rather than through one-off PRAGMA statements, which would reach only the
// single pooled connection that happened to run them.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(SQLiteDSN(path)), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	tunePool(db, 10)
	return db, nil
}

// OpenPostgres connects to PostgreSQL using the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DATABASE_URL must not be empty for postgres")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	tunePool(db, 25)
	return db, nil
}

// EnableTracing registers the GORM OpenTelemetry plugin so every statement
// becomes a child span of the request span carried in ctx.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

func tunePool(db *gorm.DB, maxOpen int) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// AutoMigrate creates or updates every table the application uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Post{},
		&domain.PostLike{},
		&domain.SavedPost{},
		&domain.Comment{},
		&domain.Follow{},
		&domain.Notification{},
		&domain.Idempotency{},
	)
}
