// Package sqldb runs statements through database/sql. It backs the SQLite
// and DuckDB dialects.
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Registers the "duckdb" driver.
	_ "github.com/duckdb/duckdb-go/v2"
	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"
)

// Config configures a database/sql pool.
type Config struct {
	// Driver is "sqlite3" or "duckdb".
	Driver string

	// DSN is the data source name. DuckDB accepts "" for an in-memory database.
	DSN string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime.
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns an in-memory SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite3",
		DSN:             "file::memory:?cache=shared",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// Errors
var (
	ErrUnsupportedDriver = errors.New("sqldb: unsupported driver")
	ErrConnectionFailed  = errors.New("sqldb: connection failed")
)

// DriverName maps a configured driver to the registered database/sql name.
func DriverName(driver string) (string, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "duckdb":
		return "duckdb", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Open opens and pings a pool.
func Open(cfg Config) (*sql.DB, error) {
	name, err := DriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	return db, nil
}
