package resilience

import "time"

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent sets the maximum concurrent executions.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxConcurrent = n
	}
}

// WithCircuitBreakerThreshold sets the failure threshold for circuit breaker.
func WithCircuitBreakerThreshold(n int) Option {
	return func(c *ExecutorConfig) {
		c.Breaker.FailureThreshold = n
	}
}

// WithCircuitBreakerCooldown sets how long the breaker stays open.
func WithCircuitBreakerCooldown(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.Breaker.Cooldown = d
	}
}

// WithRetryAttempts sets the maximum attempts.
func WithRetryAttempts(n int) Option {
	return func(c *ExecutorConfig) {
		c.Retry.MaxAttempts = n
	}
}

// WithRetryDelay sets the initial and maximum retry delays.
func WithRetryDelay(initial, maxDelay time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.Retry.InitialDelay = initial
		c.Retry.MaxDelay = maxDelay
	}
}

// WithAttemptTimeout sets the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.Retry.Timeout = d
	}
}

// WithClock overrides the breaker clock.
func WithClock(now func() time.Time) Option {
	return func(c *ExecutorConfig) {
		c.Breaker.Now = now
	}
}

// WithStateChangeHook adds a breaker transition callback.
func WithStateChangeHook(fn func(from, to State)) Option {
	return func(c *ExecutorConfig) {
		c.OnStateChange = fn
	}
}

// WithRetryHook adds a retry callback.
func WithRetryHook(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(c *ExecutorConfig) {
		c.OnRetry = fn
	}
}
