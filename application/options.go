package application

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/sqlanalyst/domain/catalog"
	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
)

// Option configures the service.
type Option func(*ServiceConfig)

// WithExecutor sets the statement executor.
func WithExecutor(e datasource.Executor) Option {
	return func(c *ServiceConfig) {
		c.Executor = e
	}
}

// WithCatalog sets the metadata catalog.
func WithCatalog(cat catalog.Catalog) Option {
	return func(c *ServiceConfig) {
		c.Catalog = cat
	}
}

// WithDialect sets the SQL dialect.
func WithDialect(d query.Dialect) Option {
	return func(c *ServiceConfig) {
		c.Dialect = d
	}
}

// WithSink sets the query log sink.
func WithSink(s querylog.Sink) Option {
	return func(c *ServiceConfig) {
		c.Sink = s
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *ServiceConfig) {
		c.Tracer = t
	}
}

// WithClock sets the clock used for timing.
func WithClock(now func() time.Time) Option {
	return func(c *ServiceConfig) {
		c.Now = now
	}
}

// WithRowLimit sets the LIMIT appended to ad-hoc queries.
func WithRowLimit(n int) Option {
	return func(c *ServiceConfig) {
		c.RowLimit = n
	}
}

// WithSampleSize sets the default number of sample rows.
func WithSampleSize(n int) Option {
	return func(c *ServiceConfig) {
		c.SampleSize = n
	}
}
