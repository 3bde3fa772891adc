package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// LogInput logs the tool input.
	LogInput bool
	// LogOutput logs the tool output, truncated to MaxOutput bytes.
	LogOutput bool
	// MaxOutput bounds logged output. Defaults to 500.
	MaxOutput int
}

// Logging returns middleware that logs every tool invocation with its
// outcome as reported by the output envelope.
func Logging(cfg LoggingConfig) middleware.Middleware {
	maxOutput := cfg.MaxOutput
	if maxOutput <= 0 {
		maxOutput = 500
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			start := time.Now()

			entry := logging.Debug().
				Add(logging.ToolName(execCtx.Tool.Name())).
				Add(logging.Str("request_id", execCtx.RequestID)).
				Add(logging.Str("transport", execCtx.Transport))
			if cfg.LogInput && len(execCtx.Input) > 0 {
				entry = entry.Add(logging.Str("input", string(execCtx.Input)))
			}
			entry.Msg("invoking tool")

			result, err := next(ctx, execCtx)
			duration := time.Since(start)

			if err != nil {
				logging.Error().
					Add(logging.ToolName(execCtx.Tool.Name())).
					Add(logging.Str("request_id", execCtx.RequestID)).
					Add(logging.ErrorField(err)).
					Add(logging.Duration(duration)).
					Msg("tool invocation failed")
				return result, err
			}

			env, _ := tool.ParseEnvelope(result.Output)
			done := logging.Info().
				Add(logging.ToolName(execCtx.Tool.Name())).
				Add(logging.Str("request_id", execCtx.RequestID)).
				Add(logging.Success(env.Success)).
				Add(logging.Duration(duration))
			if env.Code != "" {
				done = done.Add(logging.ErrorCode(env.Code))
			}
			if cfg.LogOutput && len(result.Output) > 0 {
				output := string(result.Output)
				if len(output) > maxOutput {
					output = output[:maxOutput] + "..."
				}
				done = done.Add(logging.Str("output", output))
			}
			done.Msg("tool invoked")

			return result, nil
		}
	}
}
