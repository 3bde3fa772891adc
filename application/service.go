// Package application orchestrates the analytics operations: it validates
// requests, builds SQL, runs it through the guarded executor and records one
// query log entry per operation.
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/sqlanalyst/domain/catalog"
	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/observability"
)

// Tool names recorded in the query log.
const (
	ToolListTables       = "list-tables"
	ToolGetTableSchema   = "get-table-schema"
	ToolRunQuery         = "run-query"
	ToolGetTableStats    = "get-table-stats"
	ToolDatabaseOverview = "get-database-overview"
	ToolCalculateMetrics = "calculate-metrics"
	ToolCompareData      = "compare-data"
	ToolRankEntities     = "rank-entities"
)

// Defaults for the discovery operations.
const (
	DefaultSampleSize = 5
	MaxSampleSize     = 100
)

// Service runs analytics operations against one database.
type Service struct {
	executor   datasource.Executor
	catalog    catalog.Catalog
	validator  *catalog.Validator
	builder    *query.Builder
	sink       querylog.Sink
	tracer     trace.Tracer
	now        func() time.Time
	rowLimit   int
	sampleSize int
}

// ServiceConfig contains configuration for the service.
type ServiceConfig struct {
	// Executor runs statements. Usually a resilience.Executor.
	Executor datasource.Executor

	// Catalog resolves tables and columns.
	Catalog catalog.Catalog

	// Dialect selects placeholder style and AVG rounding.
	Dialect query.Dialect

	// Sink receives one entry per operation. Defaults to querylog.Nop.
	Sink querylog.Sink

	// Tracer starts a span per operation. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	// RowLimit is the LIMIT appended to ad-hoc queries without one.
	RowLimit int

	// SampleSize is the number of sample rows in table statistics.
	SampleSize int
}

// NewService creates a service with the given configuration.
func NewService(config ServiceConfig, opts ...Option) (*Service, error) {
	for _, opt := range opts {
		opt(&config)
	}

	if config.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if config.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if config.Dialect == "" {
		config.Dialect = query.Postgres
	}

	s := &Service{
		executor:   config.Executor,
		catalog:    config.Catalog,
		validator:  catalog.NewValidator(config.Catalog),
		builder:    query.NewBuilder(config.Dialect),
		sink:       config.Sink,
		tracer:     config.Tracer,
		now:        config.Now,
		rowLimit:   config.RowLimit,
		sampleSize: config.SampleSize,
	}

	if s.sink == nil {
		s.sink = querylog.Nop
	}
	if s.tracer == nil {
		s.tracer = tracenoop.NewTracerProvider().Tracer("sqlanalyst")
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rowLimit <= 0 {
		s.rowLimit = query.DefaultRowCap
	}
	if s.sampleSize <= 0 {
		s.sampleSize = DefaultSampleSize
	}

	return s, nil
}

// Dialect returns the SQL dialect the service builds for.
func (s *Service) Dialect() query.Dialect {
	return s.builder.Dialect()
}

// operation tracks one call from its first validation step to its result.
type operation struct {
	svc     *Service
	ctx     context.Context
	outcome querylog.Outcome
	endSpan func(error)
}

func (s *Service) begin(ctx context.Context, tool, table string) *operation {
	ctx, end := observability.StartSpan(ctx, s.tracer, tool,
		observability.AttrTool.String(tool),
		observability.AttrTable.String(table),
	)
	return &operation{
		svc: s,
		ctx: ctx,
		outcome: querylog.Outcome{
			ToolName:  tool,
			TableName: table,
			Started:   s.now(),
		},
		endSpan: end,
	}
}

// statement records the rendered text of what was executed.
func (op *operation) statement(text string) {
	op.outcome.QueryText = text
	observability.Annotate(op.ctx, observability.AttrStatement.String(text))
}

// finish normalizes err, writes the log entry and ends the span. It returns
// the normalized error, or nil on success.
func (op *operation) finish(rows *int, err error) error {
	var fe *fault.Error
	if err != nil {
		fe = fault.Normalize(err, map[string]any{
			"tool":  op.outcome.ToolName,
			"table": op.outcome.TableName,
		})
		op.outcome.ErrorCode = string(fe.Code())
		op.outcome.ErrorMessage = fe.RawMessage()
		observability.Annotate(op.ctx, observability.AttrErrorCode.String(string(fe.Code())))
	} else {
		op.outcome.RowsReturned = rows
		if rows != nil {
			observability.Annotate(op.ctx, observability.AttrRows.Int(*rows))
		}
	}

	entry := querylog.NewEntry(op.outcome, op.svc.now())
	if sinkErr := op.svc.sink.Record(context.WithoutCancel(op.ctx), entry); sinkErr != nil {
		logging.Warn().
			Add(logging.Component("querylog")).
			Add(logging.ToolName(entry.ToolName)).
			Add(logging.ErrorField(sinkErr)).
			Msg("failed to record query log entry")
	}

	if fe != nil {
		op.endSpan(fe)
		return fe
	}
	op.endSpan(nil)
	return nil
}

// elapsed returns the time since the operation began.
func (op *operation) elapsed() time.Duration {
	return op.svc.now().Sub(op.outcome.Started)
}
