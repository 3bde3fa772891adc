package config

import (
	"fmt"
	"os"
	"time"

	domainconfig "github.com/felixgeelhaar/sqlanalyst/domain/config"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/datasource/postgres"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/datasource/sqldb"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/observability"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/resilience"
)

// Builder translates configuration into infrastructure settings.
type Builder struct {
	config *domainconfig.AnalystConfig
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.AnalystConfig) *Builder {
	return &Builder{config: config}
}

// Config returns the wrapped configuration.
func (b *Builder) Config() *domainconfig.AnalystConfig {
	return b.config
}

// Dialect returns the SQL dialect of the configured driver.
func (b *Builder) Dialect() (query.Dialect, error) {
	switch b.config.Database.Driver {
	case domainconfig.DriverPostgres:
		return query.Postgres, nil
	case domainconfig.DriverSQLite:
		return query.SQLite, nil
	case domainconfig.DriverDuckDB:
		return query.DuckDB, nil
	default:
		return "", fmt.Errorf("%w: unsupported driver %q", domainconfig.ErrValidationFailed, b.config.Database.Driver)
	}
}

// Postgres returns pool settings for the postgres driver.
func (b *Builder) Postgres() postgres.Config {
	cfg := postgres.DefaultConfig()
	cfg.DSN = b.config.Database.DSN
	if n := b.config.Database.MaxConns; n > 0 {
		cfg.MaxConns = int32(n)
		if cfg.MinConns > cfg.MaxConns {
			cfg.MinConns = cfg.MaxConns
		}
	}
	return cfg
}

// SQL returns pool settings for the database/sql drivers. An empty SQLite DSN
// opens a private in-memory database.
func (b *Builder) SQL() sqldb.Config {
	cfg := sqldb.DefaultConfig()
	cfg.Driver = b.config.Database.Driver
	cfg.DSN = b.config.Database.DSN
	if cfg.DSN == "" && cfg.Driver == domainconfig.DriverSQLite {
		cfg.DSN = ":memory:"
		cfg.MaxOpenConns = 1
	}
	if n := b.config.Database.MaxConns; n > 0 && cfg.MaxOpenConns != 1 {
		cfg.MaxOpenConns = n
		if cfg.MaxIdleConns > n {
			cfg.MaxIdleConns = n
		}
	}
	return cfg
}

// Executor returns the guarded executor settings. Zero values keep the
// resilience package defaults.
func (b *Builder) Executor() resilience.ExecutorConfig {
	r := b.config.Resilience
	cfg := resilience.DefaultExecutorConfig()

	if r.Bulkhead.MaxConcurrent > 0 {
		cfg.MaxConcurrent = r.Bulkhead.MaxConcurrent
	}
	if r.Retry.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = r.Retry.MaxAttempts
	}
	if d := r.Retry.InitialDelay.Duration(); d > 0 {
		cfg.Retry.InitialDelay = d
	}
	if d := r.Retry.MaxDelay.Duration(); d > 0 {
		cfg.Retry.MaxDelay = d
	}
	if r.Retry.Multiplier >= 1 {
		cfg.Retry.Multiplier = r.Retry.Multiplier
	}
	if d := b.config.Database.QueryTimeout.Duration(); d > 0 {
		cfg.Retry.Timeout = d
	}
	if r.CircuitBreaker.Threshold > 0 {
		cfg.Breaker.FailureThreshold = r.CircuitBreaker.Threshold
	}
	if r.CircuitBreaker.SuccessThreshold > 0 {
		cfg.Breaker.SuccessThreshold = r.CircuitBreaker.SuccessThreshold
	}
	if d := r.CircuitBreaker.Cooldown.Duration(); d > 0 {
		cfg.Breaker.Cooldown = d
	}
	cfg.Breaker.Name = b.config.Database.Driver
	return cfg
}

// CatalogTTL returns the metadata cache lifetime.
func (b *Builder) CatalogTTL() time.Duration {
	if d := b.config.Database.CatalogTTL.Duration(); d > 0 {
		return d
	}
	return 5 * time.Minute
}

// RateLimiter returns a tool-call limiter, or nil when rate limiting is off.
func (b *Builder) RateLimiter() *resilience.RateLimiter {
	rl := b.config.RateLimit
	if !rl.Enabled {
		return nil
	}
	return resilience.NewRateLimiter(resilience.RateLimitConfig{
		Rate:    rl.Rate,
		Burst:   rl.Burst,
		PerTool: rl.PerTool,
	})
}

// Logging returns logger settings writing to stderr.
func (b *Builder) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if b.config.Logging.Level != "" {
		cfg.Level = b.config.Logging.Level
	}
	if b.config.Logging.Format != "" {
		cfg.Format = b.config.Logging.Format
	}
	cfg.Output = os.Stderr
	return cfg
}

// Observability returns provider options for the telemetry section.
func (b *Builder) Observability(version string) []observability.Option {
	t := b.config.Telemetry
	name := b.config.Name
	if name == "" {
		name = "sqlanalyst"
	}

	opts := []observability.Option{
		observability.WithServiceName(name),
		observability.WithServiceVersion(version),
	}
	if t.Environment != "" {
		opts = append(opts, observability.WithEnvironment(t.Environment))
	}

	switch t.Tracing.Exporter {
	case "stdout":
		opts = append(opts, observability.WithTracing(observability.ExporterStdout, ""))
	case "otlp":
		opts = append(opts, observability.WithTracing(observability.ExporterOTLP, t.Tracing.Endpoint))
		if t.Tracing.Insecure {
			opts = append(opts, observability.WithTracingInsecure())
		}
	}
	if t.Tracing.SampleRate > 0 {
		opts = append(opts, observability.WithSampleRate(t.Tracing.SampleRate))
	}
	if t.Metrics.Enabled {
		opts = append(opts, observability.WithMetrics())
	}
	return opts
}
