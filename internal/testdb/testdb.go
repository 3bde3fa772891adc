// Package testdb builds a seeded SQLite database and an analytics service
// over it for package tests.
package testdb

import (
	"database/sql"
	"testing"
	"time"

	"github.com/felixgeelhaar/sqlanalyst/application"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/catalog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/datasource/sqldb"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/querylog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/resilience"
)

// Schema creates the fixture tables and rows.
const Schema = `
	CREATE TABLE projects (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		budget REAL
	);
	CREATE TABLE installs (
		id INTEGER PRIMARY KEY,
		contractor_id INTEGER NOT NULL,
		fibre_meters INTEGER
	);
	INSERT INTO projects (name, status, budget) VALUES
		('Alpha', 'active', 1000.5),
		('Beta', 'active', 2000),
		('Gamma', 'done', 500),
		('Delta', 'paused', NULL);
	INSERT INTO installs (contractor_id, fibre_meters) VALUES
		(1, 100), (1, 150), (1, 50),
		(2, 80), (2, 20),
		(3, NULL);
`

// Open returns a seeded in-memory SQLite database closed with the test.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sqldb.Open(sqldb.Config{Driver: "sqlite3", DSN: ":memory:", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("failed to seed database: %v", err)
	}
	return db
}

// Fixture is a service over the seeded database with its query log.
type Fixture struct {
	DB       *sql.DB
	Executor *resilience.Executor
	Service  *application.Service
	Log      *querylog.MemoryStore
}

// New builds a Fixture. The guarded executor retries with millisecond delays.
func New(t testing.TB, opts ...application.Option) *Fixture {
	t.Helper()

	db := Open(t)
	raw := sqldb.NewExecutor(db)
	guarded, err := resilience.NewExecutor(raw, resilience.DefaultExecutorConfig(),
		resilience.WithRetryDelay(time.Millisecond, 2*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	store := querylog.NewMemoryStore(0)
	svc, err := application.NewService(application.ServiceConfig{
		Executor: guarded,
		Catalog:  catalog.NewCached(catalog.NewSQLite(raw)),
		Dialect:  query.SQLite,
		Sink:     store,
	}, opts...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	return &Fixture{DB: db, Executor: guarded, Service: svc, Log: store}
}
