package middleware

import (
	"context"

	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/resilience"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Limiter is the token bucket consulted before every call (required).
	Limiter *resilience.RateLimiter

	// OnLimitExceeded is called when a request is rate limited.
	OnLimitExceeded func(ctx context.Context, execCtx *middleware.ExecutionContext)
}

// RateLimit returns middleware that rejects calls over the configured budget
// with a RATE_LIMIT_ERROR. A nil limiter disables the check.
func RateLimit(cfg RateLimitConfig) middleware.Middleware {
	if cfg.Limiter == nil {
		return middleware.Noop()
	}
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			if err := cfg.Limiter.Allow(ctx, execCtx.Tool.Name()); err != nil {
				logging.Warn().
					Add(logging.ToolName(execCtx.Tool.Name())).
					Add(logging.Str("request_id", execCtx.RequestID)).
					Msg("rate limit exceeded")

				if cfg.OnLimitExceeded != nil {
					cfg.OnLimitExceeded(ctx, execCtx)
				}
				return tool.Result{}, err
			}
			return next(ctx, execCtx)
		}
	}
}
