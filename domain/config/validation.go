package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates analyst configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *AnalystConfig) ValidationErrors {
	v.errors = nil

	v.validateDatabase(config)
	v.validateResilience(config)
	v.validateRateLimit(config)
	v.validateQueryLog(config)
	v.validateLogging(config)
	v.validateServer(config)
	v.validateTelemetry(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateDatabase(config *AnalystConfig) {
	db := config.Database
	switch db.Driver {
	case "":
		v.addError("database.driver", "driver is required")
	case DriverPostgres, DriverSQLite, DriverDuckDB:
	default:
		v.addError("database.driver", fmt.Sprintf("unsupported driver: %s", db.Driver))
	}
	if db.DSN == "" && db.Driver == DriverPostgres {
		v.addError("database.dsn", "dsn is required for postgres")
	}
	if db.MaxRows < 0 {
		v.addError("database.max_rows", "max_rows must be non-negative")
	}
	if db.MaxConns < 0 {
		v.addError("database.max_conns", "max_conns must be non-negative")
	}
	if db.CatalogTTL < 0 {
		v.addError("database.catalog_ttl", "catalog_ttl must be non-negative")
	}
	if db.QueryTimeout < 0 {
		v.addError("database.query_timeout", "query_timeout must be non-negative")
	}
}

func (v *Validator) validateResilience(config *AnalystConfig) {
	r := config.Resilience
	if r.Retry.MaxAttempts < 0 {
		v.addError("resilience.retry.max_attempts", "max_attempts must be non-negative")
	}
	if r.Retry.Multiplier != 0 && r.Retry.Multiplier < 1 {
		v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
	}
	if r.Retry.MaxDelay != 0 && r.Retry.MaxDelay < r.Retry.InitialDelay {
		v.addError("resilience.retry.max_delay", "max_delay must be >= initial_delay")
	}
	if r.CircuitBreaker.Threshold < 0 {
		v.addError("resilience.circuit_breaker.threshold", "threshold must be non-negative")
	}
	if r.CircuitBreaker.SuccessThreshold < 0 {
		v.addError("resilience.circuit_breaker.success_threshold", "success_threshold must be non-negative")
	}
	if r.CircuitBreaker.Cooldown < 0 {
		v.addError("resilience.circuit_breaker.cooldown", "cooldown must be non-negative")
	}
	if r.Bulkhead.MaxConcurrent < 0 {
		v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be non-negative")
	}
}

func (v *Validator) validateRateLimit(config *AnalystConfig) {
	if !config.RateLimit.Enabled {
		return
	}
	if config.RateLimit.Rate <= 0 {
		v.addError("rate_limit.rate", "rate must be positive when enabled")
	}
	if config.RateLimit.Burst <= 0 {
		v.addError("rate_limit.burst", "burst must be positive when enabled")
	}
}

func (v *Validator) validateQueryLog(config *AnalystConfig) {
	ql := config.QueryLog
	for i, sink := range ql.Sinks {
		switch sink {
		case SinkLog, SinkMemory:
		case SinkSQLite, SinkPostgres:
			if ql.DSN == "" {
				v.addError("query_log.dsn", fmt.Sprintf("dsn is required for the %s sink", sink))
			}
		default:
			v.addError(fmt.Sprintf("query_log.sinks[%d]", i), fmt.Sprintf("unknown sink: %s", sink))
		}
	}
	if ql.Has(SinkSQLite) && ql.Has(SinkPostgres) {
		v.addError("query_log.sinks", "sqlite and postgres sinks share one dsn and cannot both be enabled")
	}
	if ql.Capacity < 0 {
		v.addError("query_log.capacity", "capacity must be non-negative")
	}
	if ql.Table != "" && !identifier(ql.Table) {
		v.addError("query_log.table", fmt.Sprintf("invalid table name: %s", ql.Table))
	}
}

func (v *Validator) validateLogging(config *AnalystConfig) {
	switch strings.ToLower(config.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateServer(config *AnalystConfig) {
	s := config.Server
	switch s.Transport {
	case "", TransportStdio:
	case TransportHTTP:
		if s.Addr == "" {
			v.addError("server.addr", "addr is required for the http transport")
		}
	default:
		v.addError("server.transport", fmt.Sprintf("invalid transport: %s", s.Transport))
	}
	if (s.Transport == "" || s.Transport == TransportStdio) && config.Telemetry.Tracing.Exporter == "stdout" {
		v.addError("telemetry.tracing.exporter", "the stdout exporter would corrupt the stdio transport")
	}
	if s.MCPAddr != "" && s.MCPAddr == s.Addr {
		v.addError("server.mcp_addr", "mcp_addr must differ from addr")
	}
	if s.RequestTimeout < 0 {
		v.addError("server.request_timeout", "request_timeout must be non-negative")
	}
}

func (v *Validator) validateTelemetry(config *AnalystConfig) {
	tr := config.Telemetry.Tracing
	switch tr.Exporter {
	case "", "none", "stdout":
	case "otlp":
		if tr.Endpoint == "" {
			v.addError("telemetry.tracing.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("telemetry.tracing.exporter", fmt.Sprintf("invalid exporter: %s", tr.Exporter))
	}
	if tr.SampleRate < 0 || tr.SampleRate > 1 {
		v.addError("telemetry.tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}

// identifier reports whether s is a plain SQL identifier.
func identifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
