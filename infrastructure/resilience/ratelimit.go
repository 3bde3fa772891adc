package resilience

import (
	"context"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// RateLimitConfig configures tool-call rate limiting.
type RateLimitConfig struct {
	// Rate is the number of tokens added per second.
	Rate int

	// Burst is the bucket capacity.
	Burst int

	// PerTool gives each tool its own bucket instead of one shared bucket.
	PerTool bool
}

// RateLimiter is a token bucket keyed by tool name.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	perTool bool
}

// NewRateLimiter builds a limiter. Rate defaults to 100 and Burst to Rate.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rate := cfg.Rate
	if rate <= 0 {
		rate = 100
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = rate
	}
	return &RateLimiter{
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:  rate,
			Burst: burst,
		}),
		perTool: cfg.PerTool,
	}
}

// Allow takes a token for toolName or returns a RATE_LIMIT_ERROR.
func (r *RateLimiter) Allow(ctx context.Context, toolName string) error {
	key := "global"
	if r.perTool {
		key = toolName
	}
	if !r.limiter.Allow(ctx, key) {
		return fault.RateLimited(key)
	}
	return nil
}
