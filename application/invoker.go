package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
)

// Invoker resolves tools by name and runs them through a middleware chain.
// Every transport (MCP, HTTP, CLI) calls tools through one Invoker.
type Invoker struct {
	registry tool.Registry
	handler  middleware.Handler
}

// NewInvoker builds an invoker over reg. Middleware run in the order given.
func NewInvoker(reg tool.Registry, mws ...middleware.Middleware) *Invoker {
	final := func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
		return execCtx.Tool.Execute(ctx, execCtx.Input)
	}
	return &Invoker{
		registry: reg,
		handler:  middleware.Chain(mws...)(final),
	}
}

// Registry returns the tool registry.
func (i *Invoker) Registry() tool.Registry {
	return i.registry
}

// Invoke runs the named tool. Unknown tools return tool.ErrToolNotFound;
// any other failure, including ones raised by middleware, comes back as a
// "success": false envelope with a nil error.
func (i *Invoker) Invoke(ctx context.Context, name string, input json.RawMessage) (tool.Result, error) {
	t, ok := i.registry.Get(name)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %s", tool.ErrToolNotFound, name)
	}

	requestID := middleware.RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = middleware.WithRequestID(ctx, requestID)
	}
	execCtx := &middleware.ExecutionContext{
		RequestID: requestID,
		Transport: middleware.TransportFrom(ctx),
		Tool:      t,
		Input:     input,
	}

	start := time.Now()
	result, err := i.handler(ctx, execCtx)
	if err != nil {
		if errors.Is(err, tool.ErrNoHandler) {
			return tool.Result{}, err
		}
		result = tool.Failure("Error invoking "+name, err, nil)
	}
	result.Duration = time.Since(start)
	return result, nil
}
