package config

import (
	"testing"
	"time"

	domainconfig "github.com/felixgeelhaar/sqlanalyst/domain/config"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
)

func TestBuilder_Dialect(t *testing.T) {
	tests := []struct {
		driver  string
		want    query.Dialect
		wantErr bool
	}{
		{driver: "postgres", want: query.Postgres},
		{driver: "sqlite", want: query.SQLite},
		{driver: "duckdb", want: query.DuckDB},
		{driver: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := domainconfig.Default()
			cfg.Database.Driver = tt.driver

			got, err := NewBuilder(cfg).Dialect()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dialect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Dialect() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuilder_Executor(t *testing.T) {
	cfg := domainconfig.Default()
	cfg.Database.QueryTimeout = domainconfig.Duration(5 * time.Second)
	cfg.Resilience.Retry.MaxAttempts = 4
	cfg.Resilience.Retry.InitialDelay = domainconfig.Duration(100 * time.Millisecond)
	cfg.Resilience.CircuitBreaker.Threshold = 2
	cfg.Resilience.CircuitBreaker.Cooldown = domainconfig.Duration(time.Second)
	cfg.Resilience.Bulkhead.MaxConcurrent = 3

	ec := NewBuilder(cfg).Executor()

	if ec.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", ec.MaxConcurrent)
	}
	if ec.Retry.MaxAttempts != 4 || ec.Retry.InitialDelay != 100*time.Millisecond || ec.Retry.Timeout != 5*time.Second {
		t.Errorf("Retry = %+v", ec.Retry)
	}
	if ec.Breaker.FailureThreshold != 2 || ec.Breaker.Cooldown != time.Second || ec.Breaker.Name != "sqlite" {
		t.Errorf("Breaker = %+v", ec.Breaker)
	}
}

func TestBuilder_ExecutorKeepsDefaultsForZeroValues(t *testing.T) {
	ec := NewBuilder(&domainconfig.AnalystConfig{}).Executor()

	if ec.Retry.MaxAttempts != 3 || ec.Retry.Timeout != 30*time.Second {
		t.Errorf("Retry = %+v", ec.Retry)
	}
	if ec.Breaker.FailureThreshold != 5 || ec.Breaker.SuccessThreshold != 2 {
		t.Errorf("Breaker = %+v", ec.Breaker)
	}
}

func TestBuilder_SQL(t *testing.T) {
	cfg := domainconfig.Default()
	sc := NewBuilder(cfg).SQL()
	if sc.Driver != "sqlite" || sc.DSN != ":memory:" || sc.MaxOpenConns != 1 {
		t.Errorf("in-memory SQL config = %+v", sc)
	}

	cfg.Database.Driver = domainconfig.DriverDuckDB
	cfg.Database.DSN = "warehouse.duckdb"
	cfg.Database.MaxConns = 4
	sc = NewBuilder(cfg).SQL()
	if sc.DSN != "warehouse.duckdb" || sc.MaxOpenConns != 4 || sc.MaxIdleConns > 4 {
		t.Errorf("duckdb SQL config = %+v", sc)
	}
}

func TestBuilder_Postgres(t *testing.T) {
	cfg := domainconfig.Default()
	cfg.Database.Driver = domainconfig.DriverPostgres
	cfg.Database.DSN = "postgres://localhost/app"
	cfg.Database.MaxConns = 1

	pc := NewBuilder(cfg).Postgres()
	if pc.DSN != "postgres://localhost/app" || pc.MaxConns != 1 || pc.MinConns != 1 {
		t.Errorf("Postgres() = %+v", pc)
	}
}

func TestBuilder_RateLimiter(t *testing.T) {
	cfg := domainconfig.Default()
	if NewBuilder(cfg).RateLimiter() != nil {
		t.Error("RateLimiter() should be nil when disabled")
	}

	cfg.RateLimit = domainconfig.RateLimitConfig{Enabled: true, Rate: 1, Burst: 1}
	rl := NewBuilder(cfg).RateLimiter()
	if rl == nil {
		t.Fatal("RateLimiter() = nil")
	}
	if err := rl.Allow(t.Context(), "list-tables"); err != nil {
		t.Errorf("first Allow() error = %v", err)
	}
	if err := rl.Allow(t.Context(), "list-tables"); err == nil {
		t.Error("second Allow() should exceed a burst of one")
	}
}

func TestBuilder_LoggingAndCatalog(t *testing.T) {
	cfg := domainconfig.Default()
	cfg.Logging = domainconfig.LoggingConfig{Level: "debug", Format: "json"}
	cfg.Database.CatalogTTL = 0

	b := NewBuilder(cfg)
	lc := b.Logging()
	if lc.Level != "debug" || lc.Format != "json" || lc.Output == nil {
		t.Errorf("Logging() = %+v", lc)
	}
	if b.CatalogTTL() != 5*time.Minute {
		t.Errorf("CatalogTTL() = %v, want 5m", b.CatalogTTL())
	}
}

func TestBuilder_Observability(t *testing.T) {
	cfg := domainconfig.Default()
	if got := len(NewBuilder(cfg).Observability("1.2.3")); got != 4 {
		t.Errorf("default options = %d, want 4 (name, version, environment, sample rate)", got)
	}

	cfg.Telemetry.Tracing = domainconfig.TracingConfig{Exporter: "otlp", Endpoint: "collector:4317", Insecure: true}
	cfg.Telemetry.Metrics.Enabled = true
	if got := len(NewBuilder(cfg).Observability("1.2.3")); got != 6 {
		t.Errorf("otlp options = %d, want 6", got)
	}
}
