// Package middleware provides the tool-invocation middleware used by every
// transport.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
)

// Validation returns middleware that validates tool input against the tool's
// declared JSON schema. Rejected input never reaches the tool.
func Validation() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			if err := execCtx.Tool.InputSchema().Validate(execCtx.Input); err != nil {
				return tool.Result{}, invalidInput(execCtx.Tool.Name(), err)
			}
			return next(ctx, execCtx)
		}
	}
}

func invalidInput(name string, err error) error {
	detail := err.Error()
	if errors.Is(err, tool.ErrInvalidInput) {
		detail = strings.TrimPrefix(detail, tool.ErrInvalidInput.Error()+": ")
	}
	// Schema errors span several lines; the first names the failing location.
	if i := strings.IndexByte(detail, '\n'); i >= 0 {
		detail = strings.TrimSpace(detail[:i]) + " " + strings.TrimSpace(strings.ReplaceAll(detail[i+1:], "\n", " "))
	}
	return fault.New(fault.CodeInvalidInput, detail,
		fault.WithUserMessage("The input for "+name+" does not match its schema: "+detail),
		fault.WithCause(err),
		fault.WithContext(map[string]any{"tool": name}),
	)
}
