package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

//go:embed migrations/sqlite3/*.sql migrations/postgres/*.sql
var migrations embed.FS

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// DB wraps the catalog connection pool together with the driver it was opened with.
type DB struct {
	*sql.DB
	Driver string
}

// Open connects to the catalog database. SQLite connections are pinned to a
// single writer and have foreign key enforcement switched on.
func Open(driver, dsn string) (*DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "", "sqlite", DriverSQLite:
		driver = DriverSQLite
		dsn = sqliteDSN(dsn)
	case "postgresql", DriverPostgres:
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &DB{DB: db, Driver: driver}, nil
}

// Wrap adopts an existing connection pool, used by tests with sqlmock.
func Wrap(db *sql.DB, driver string) *DB {
	return &DB{DB: db, Driver: driver}
}

func sqliteDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "cache/catalog.db"
	}
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// Migrate applies every pending schema migration for the connection's dialect.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(db.Driver); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations/"+db.Driver); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Version reports the currently applied schema version.
func (db *DB) Version(ctx context.Context) (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(db.Driver); err != nil {
		return 0, fmt.Errorf("set migration dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db.DB)
}

type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	log.Fatalf("[db] "+format, v...)
}

func (gooseLogger) Printf(format string, v ...interface{}) {
	log.Printf("[db] "+strings.TrimSuffix(format, "\n"), v...)
}
