package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on analytics spans.
const (
	AttrTool      = attribute.Key("analyst.tool")
	AttrTable     = attribute.Key("db.sql.table")
	AttrStatement = attribute.Key("db.statement")
	AttrRows      = attribute.Key("analyst.rows")
	AttrErrorCode = attribute.Key("analyst.error.code")
)

// StartSpan starts an internal span and returns a function that ends it,
// marking the span failed when err is non-nil.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// Annotate adds attributes to the span in ctx, if any is recording.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attrs...)
}
