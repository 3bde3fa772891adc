package middleware

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
)

// Recover returns middleware that turns a panicking tool into an
// UNKNOWN_ERROR so one bad call cannot take the server down.
func Recover() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (result tool.Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					logging.Error().
						Add(logging.ToolName(execCtx.Tool.Name())).
						Add(logging.Str("panic", fmt.Sprint(r))).
						Msg("tool panicked")
					result = tool.Result{}
					err = fault.New(fault.CodeUnknown, fmt.Sprintf("tool %s panicked: %v", execCtx.Tool.Name(), r),
						fault.WithRetryable(false))
				}
			}()
			return next(ctx, execCtx)
		}
	}
}
