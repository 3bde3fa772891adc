package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	infracatalog "github.com/felixgeelhaar/sqlanalyst/infrastructure/catalog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/datasource/sqldb"
	infralog "github.com/felixgeelhaar/sqlanalyst/infrastructure/querylog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/resilience"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type flakyBackend struct {
	svc      *Service
	guarded  *resilience.Executor
	clock    *testClock
	down     atomic.Bool
	inflight atomic.Int32
	overlap  atomic.Bool
}

// setupFlaky builds a service whose backend can be taken down. Catalog
// lookups bypass the guarded executor so only data reads touch the breaker.
func setupFlaky(t *testing.T) *flakyBackend {
	t.Helper()

	db, err := sqldb.Open(sqldb.Config{Driver: "sqlite3", DSN: ":memory:", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`
		CREATE TABLE installs (
			id INTEGER PRIMARY KEY,
			contractor_id INTEGER NOT NULL,
			fibre_meters INTEGER
		);
		INSERT INTO installs (contractor_id, fibre_meters) VALUES
			(1, 100), (1, 150), (1, 50),
			(2, 80), (2, 20);
	`)
	if err != nil {
		t.Fatalf("failed to seed database: %v", err)
	}

	raw := sqldb.NewExecutor(db)
	fb := &flakyBackend{clock: &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}
	backend := datasource.ExecutorFunc(func(ctx context.Context, sql string, args ...any) (*datasource.ResultSet, error) {
		if fb.down.Load() {
			return nil, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
		}
		if fb.inflight.Add(1) > 1 {
			fb.overlap.Store(true)
		}
		defer fb.inflight.Add(-1)
		time.Sleep(10 * time.Millisecond)
		return raw.Query(ctx, sql, args...)
	})

	fb.guarded, err = resilience.NewExecutor(backend, resilience.DefaultExecutorConfig(),
		resilience.WithRetryAttempts(1),
		resilience.WithClock(fb.clock.Now),
	)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	fb.svc, err = NewService(ServiceConfig{
		Executor: fb.guarded,
		Catalog:  infracatalog.NewCached(infracatalog.NewSQLite(raw)),
		Dialect:  query.SQLite,
		Sink:     infralog.NewMemoryStore(0),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return fb
}

func (fb *flakyBackend) tripAndRecover(t *testing.T) {
	t.Helper()

	fb.down.Store(true)
	for i := 0; i < 5; i++ {
		_, _ = fb.guarded.Query(context.Background(), "SELECT 1")
	}
	if got := fb.guarded.Breaker().State(); got != resilience.StateOpen {
		t.Fatalf("breaker State() = %s, want OPEN", got)
	}
	fb.down.Store(false)
	fb.clock.Advance(61 * time.Second)
}

func TestService_CompareRecoversThroughHalfOpen(t *testing.T) {
	t.Parallel()

	fb := setupFlaky(t)
	fb.tripAndRecover(t)

	params := query.CompareParams{
		Table:     "installs",
		Metric:    "count",
		CompareBy: "contractor_id",
		Value1:    1,
		Value2:    2,
	}

	res, err := fb.svc.Compare(context.Background(), params)
	if err != nil {
		t.Fatalf("Compare() after cooldown error = %v", err)
	}
	if c := res.Comparison; c.Value1Result != 3 || c.Value2Result != 2 {
		t.Errorf("Comparison = %+v", c)
	}
	if got := fb.guarded.Breaker().State(); got != resilience.StateClosed {
		t.Errorf("breaker State() = %s, want CLOSED after two successful reads", got)
	}
	if fb.overlap.Load() {
		t.Error("half-open reads overlapped; only one probe may run at a time")
	}

	if _, err := fb.svc.Compare(context.Background(), params); err != nil {
		t.Errorf("Compare() on closed breaker error = %v", err)
	}
}

func TestService_TableStatsRecoversThroughHalfOpen(t *testing.T) {
	t.Parallel()

	fb := setupFlaky(t)
	fb.tripAndRecover(t)

	res, err := fb.svc.TableStats(context.Background(), "installs", 2)
	if err != nil {
		t.Fatalf("TableStats() after cooldown error = %v", err)
	}
	if res.Stats.RowCount != 5 || len(res.Stats.SampleData) != 2 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if got := fb.guarded.Breaker().State(); got != resilience.StateClosed {
		t.Errorf("breaker State() = %s, want CLOSED", got)
	}
}
