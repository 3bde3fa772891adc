package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/observability"
)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// Tracer creates the spans. Defaults to the global "sqlanalyst" tracer.
	Tracer trace.Tracer

	// RecordInput records tool input as a span attribute.
	RecordInput bool

	// MaxAttributeSize limits the size of recorded input. Defaults to 1024.
	MaxAttributeSize int
}

// Tracing returns middleware that wraps every invocation in a "tool.<name>"
// span. Service operations started by the tool become its children.
func Tracing(cfg TracingConfig) middleware.Middleware {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("sqlanalyst")
	}
	maxSize := cfg.MaxAttributeSize
	if maxSize <= 0 {
		maxSize = 1024
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			attrs := []attribute.KeyValue{
				observability.AttrTool.String(execCtx.Tool.Name()),
				attribute.String("analyst.request_id", execCtx.RequestID),
			}
			if execCtx.Transport != "" {
				attrs = append(attrs, attribute.String("analyst.transport", execCtx.Transport))
			}
			if cfg.RecordInput && len(execCtx.Input) > 0 {
				input := string(execCtx.Input)
				if len(input) > maxSize {
					input = input[:maxSize]
				}
				attrs = append(attrs, attribute.String("analyst.input", input))
			}

			ctx, end := observability.StartSpan(ctx, tracer, "tool."+execCtx.Tool.Name(), attrs...)
			result, err := next(ctx, execCtx)
			if err == nil {
				if env, perr := tool.ParseEnvelope(result.Output); perr == nil {
					observability.Annotate(ctx, attribute.Bool("analyst.success", env.Success))
					if env.Code != "" {
						observability.Annotate(ctx, observability.AttrErrorCode.String(env.Code))
					}
				}
			}
			end(err)
			return result, err
		}
	}
}
