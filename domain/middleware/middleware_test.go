package middleware_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
)

// mockTool implements tool.Tool for testing
type mockTool struct {
	name string
}

func (m mockTool) Name() string                  { return m.name }
func (m mockTool) Description() string           { return "mock tool" }
func (m mockTool) Annotations() tool.Annotations { return tool.Annotations{} }
func (m mockTool) InputSchema() tool.Schema      { return tool.Schema{} }
func (m mockTool) Execute(context.Context, json.RawMessage) (tool.Result, error) {
	return tool.Result{}, nil
}

func tracing(name string, order *[]string) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, ec *middleware.ExecutionContext) (tool.Result, error) {
			*order = append(*order, "before-"+name)
			result, err := next(ctx, ec)
			*order = append(*order, "after-"+name)
			return result, err
		}
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	t.Run("chains middleware in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		handler := middleware.Chain(tracing("1", &order), tracing("2", &order), tracing("3", &order))(
			func(context.Context, *middleware.ExecutionContext) (tool.Result, error) {
				order = append(order, "handler")
				return tool.NewResult(json.RawMessage(`"done"`)), nil
			})

		ec := &middleware.ExecutionContext{
			RequestID: "req-1",
			Tool:      mockTool{name: "list-tables"},
			Input:     json.RawMessage(`{}`),
		}
		if _, err := handler(context.Background(), ec); err != nil {
			t.Fatalf("handler error = %v", err)
		}

		expected := []string{"before-1", "before-2", "before-3", "handler", "after-3", "after-2", "after-1"}
		if len(order) != len(expected) {
			t.Fatalf("execution order = %v, want %v", order, expected)
		}
		for i, v := range expected {
			if order[i] != v {
				t.Errorf("execution order[%d] = %s, want %s", i, order[i], v)
			}
		}
	})

	t.Run("empty chain returns final handler directly", func(t *testing.T) {
		t.Parallel()

		handler := middleware.Chain()(func(context.Context, *middleware.ExecutionContext) (tool.Result, error) {
			return tool.NewResult(json.RawMessage(`"direct"`)), nil
		})

		result, err := handler(context.Background(), &middleware.ExecutionContext{})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if result.OutputString() != `"direct"` {
			t.Errorf("result = %s, want \"direct\"", result.Output)
		}
	})

	t.Run("middleware can short-circuit", func(t *testing.T) {
		t.Parallel()

		blocked := func(middleware.Handler) middleware.Handler {
			return func(context.Context, *middleware.ExecutionContext) (tool.Result, error) {
				return tool.NewResult(json.RawMessage(`"blocked"`)), nil
			}
		}
		called := false
		handler := middleware.Chain(blocked)(func(context.Context, *middleware.ExecutionContext) (tool.Result, error) {
			called = true
			return tool.Result{}, nil
		})

		result, _ := handler(context.Background(), &middleware.ExecutionContext{})
		if called {
			t.Error("final handler should not run")
		}
		if result.OutputString() != `"blocked"` {
			t.Errorf("result = %s", result.Output)
		}
	})
}

func TestNoop(t *testing.T) {
	t.Parallel()

	handler := middleware.Noop()(func(context.Context, *middleware.ExecutionContext) (tool.Result, error) {
		return tool.NewResult(json.RawMessage(`1`)), nil
	})
	result, err := handler(context.Background(), &middleware.ExecutionContext{})
	if err != nil || result.OutputString() != "1" {
		t.Errorf("Noop() = %s, %v", result.Output, err)
	}
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if middleware.RequestIDFrom(ctx) != "" || middleware.TransportFrom(ctx) != "" {
		t.Error("empty context should carry no values")
	}

	ctx = middleware.WithTransport(middleware.WithRequestID(ctx, "req-9"), "http")
	if got := middleware.RequestIDFrom(ctx); got != "req-9" {
		t.Errorf("RequestIDFrom() = %q, want req-9", got)
	}
	if got := middleware.TransportFrom(ctx); got != "http" {
		t.Errorf("TransportFrom() = %q, want http", got)
	}
}
