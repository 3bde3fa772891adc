// Package config provides domain models for analyst configuration.
package config

import "time"

// AnalystConfig represents the complete server configuration.
type AnalystConfig struct {
	// Name is a human-readable name for this deployment.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Version is the configuration schema version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Database selects and tunes the analyzed database.
	Database DatabaseConfig `json:"database" yaml:"database"`
	// Resilience contains retry, breaker and bulkhead settings.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// RateLimit throttles tool calls.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	// QueryLog configures where executed queries are recorded.
	QueryLog QueryLogConfig `json:"query_log,omitempty" yaml:"query_log,omitempty"`
	// Logging configures the process logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Server configures the tool transports.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`
	// Telemetry configures tracing and metrics.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverDuckDB   = "duckdb"
)

// DatabaseConfig configures the analyzed database.
type DatabaseConfig struct {
	// Driver is postgres, sqlite or duckdb.
	Driver string `json:"driver" yaml:"driver"`
	// DSN is the connection string. Falls back to DATABASE_URL.
	DSN string `json:"dsn" yaml:"dsn"`
	// Schema is the catalog schema to expose (default: public / main).
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
	// MaxRows caps the rows any single statement returns.
	MaxRows int `json:"max_rows,omitempty" yaml:"max_rows,omitempty"`
	// MaxConns is the connection pool size.
	MaxConns int `json:"max_conns,omitempty" yaml:"max_conns,omitempty"`
	// CatalogTTL is how long table and column metadata is cached.
	CatalogTTL Duration `json:"catalog_ttl,omitempty" yaml:"catalog_ttl,omitempty"`
	// QueryTimeout bounds each attempt of a statement.
	QueryTimeout Duration `json:"query_timeout,omitempty" yaml:"query_timeout,omitempty"`
}

// ResilienceConfig contains resilience settings.
type ResilienceConfig struct {
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// MaxDelay is the maximum delay between retries.
	MaxDelay Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Threshold is consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// SuccessThreshold is consecutive half-open successes before closing.
	SuccessThreshold int `json:"success_threshold,omitempty" yaml:"success_threshold,omitempty"`
	// Cooldown is how long the circuit stays open.
	Cooldown Duration `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum concurrent statements.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// RateLimitConfig configures tool-call rate limiting.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Rate is the tokens per second.
	Rate int `json:"rate,omitempty" yaml:"rate,omitempty"`
	// Burst is the maximum burst size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
	// PerTool enables per-tool rate limiting.
	PerTool bool `json:"per_tool,omitempty" yaml:"per_tool,omitempty"`
}

// Query log sinks.
const (
	SinkLog      = "log"
	SinkMemory   = "memory"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
)

// QueryLogConfig configures query log sinks.
type QueryLogConfig struct {
	// Sinks lists where entries go: log, memory, sqlite, postgres.
	Sinks []string `json:"sinks,omitempty" yaml:"sinks,omitempty"`
	// DSN is the store connection string for the sqlite and postgres sinks.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Table is the store table name.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// Capacity bounds the memory sink.
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// Has reports whether sink is configured.
func (c QueryLogConfig) Has(sink string) bool {
	for _, s := range c.Sinks {
		if s == sink {
			return true
		}
	}
	return false
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Server transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServerConfig configures the tool transports.
type ServerConfig struct {
	// Transport is stdio (MCP over stdio) or http (REST plus MCP over HTTP).
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`
	// Addr is the REST API listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// MCPAddr is the MCP streamable HTTP listen address. Empty disables it.
	MCPAddr string `json:"mcp_addr,omitempty" yaml:"mcp_addr,omitempty"`
	// AllowedOrigins are CORS origins for the REST API.
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	// RequestTimeout bounds each REST request.
	RequestTimeout Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	// Environment is the deployment environment attribute.
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	// Tracing configures span export.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	// Metrics enables the metric SDK.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Exporter is none, stdout or otlp.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP gRPC endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS towards the endpoint.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is between 0 and 1.
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// MetricsConfig configures metrics.
type MetricsConfig struct {
	// Enabled installs an SDK meter provider.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Default returns a configuration for a local SQLite database served over
// stdio, with the resilience defaults of the query executor.
func Default() *AnalystConfig {
	return &AnalystConfig{
		Name:    "sqlanalyst",
		Version: "1.0",
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			MaxRows:      10000,
			MaxConns:     10,
			CatalogTTL:   Duration(5 * time.Minute),
			QueryTimeout: Duration(30 * time.Second),
		},
		Resilience: ResilienceConfig{
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: Duration(time.Second),
				MaxDelay:     Duration(10 * time.Second),
				Multiplier:   2,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Threshold:        5,
				SuccessThreshold: 2,
				Cooldown:         Duration(60 * time.Second),
			},
			Bulkhead: BulkheadConfig{MaxConcurrent: 10},
		},
		RateLimit: RateLimitConfig{
			Rate:  100,
			Burst: 100,
		},
		QueryLog: QueryLogConfig{
			Sinks:    []string{SinkLog, SinkMemory},
			Table:    "query_log",
			Capacity: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Transport:      TransportStdio,
			Addr:           ":8080",
			RequestTimeout: Duration(60 * time.Second),
		},
		Telemetry: TelemetryConfig{
			Environment: "development",
			Tracing: TracingConfig{
				Exporter:   "none",
				SampleRate: 1,
			},
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Handle null
	if string(b) == "null" {
		return nil
	}

	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	// Parse duration
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
