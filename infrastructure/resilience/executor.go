// Package resilience guards database calls with retry, per-attempt timeouts,
// a circuit breaker and a bulkhead.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"

	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
)

// ExecutorConfig configures the guarded executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent statements.
	MaxConcurrent int

	// Retry configures attempts, backoff and the per-attempt timeout.
	Retry RetryOptions

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig

	// OnRetry is called in addition to the built-in retry logging.
	OnRetry func(attempt int, err error, wait time.Duration)

	// OnStateChange is called in addition to the built-in transition logging.
	OnStateChange func(from, to State)
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent: 10,
		Retry:         DefaultRetryOptions(),
		Breaker:       DefaultBreakerConfig(),
	}
}

// Executor is a datasource.Executor that runs every statement through
// bulkhead, retry, timeout and circuit breaker, in that order.
type Executor struct {
	inner    datasource.Executor
	bulkhead bulkhead.Bulkhead[*datasource.ResultSet]
	breaker  *CircuitBreaker
	retry    RetryOptions
}

// NewExecutor wraps inner.
func NewExecutor(inner datasource.Executor, config ExecutorConfig, opts ...Option) (*Executor, error) {
	if inner == nil {
		return nil, errors.New("resilience: inner executor is required")
	}
	for _, opt := range opts {
		opt(&config)
	}

	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	bc := config.Breaker
	name := bc.Name
	userHook := config.OnStateChange
	chained := bc.OnStateChange
	bc.OnStateChange = func(from, to State) {
		logging.Warn().
			Add(logging.Component("circuit-breaker")).
			Add(logging.Str("resource", name)).
			Add(logging.FromState(from.String())).
			Add(logging.ToState(to.String())).
			Msg("circuit breaker state changed")
		if chained != nil {
			chained(from, to)
		}
		if userHook != nil {
			userHook(from, to)
		}
	}
	if bc.IsFailure == nil {
		bc.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	breaker, err := NewCircuitBreaker(bc)
	if err != nil {
		return nil, err
	}

	retry := config.Retry
	retryHook := config.OnRetry
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		logging.Warn().
			Add(logging.Component("retry")).
			Add(logging.Attempt(attempt)).
			Add(logging.ErrorCode(string(fault.CodeOf(err)))).
			Add(logging.Wait(wait)).
			Add(logging.ErrorField(err)).
			Msg("query attempt failed, retrying")
		if retryHook != nil {
			retryHook(attempt, err, wait)
		}
	}

	return &Executor{
		inner: inner,
		bulkhead: bulkhead.New[*datasource.ResultSet](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: breaker,
		retry:   retry,
	}, nil
}

// Query implements datasource.Executor.
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (*datasource.ResultSet, error) {
	return e.bulkhead.Execute(ctx, func(ctx context.Context) (*datasource.ResultSet, error) {
		return Retry(ctx, e.retry, func(ctx context.Context) (*datasource.ResultSet, error) {
			return Execute(ctx, e.breaker, func(ctx context.Context) (*datasource.ResultSet, error) {
				return e.inner.Query(ctx, sql, args...)
			})
		})
	})
}

// Breaker returns the executor's circuit breaker.
func (e *Executor) Breaker() *CircuitBreaker {
	return e.breaker
}

var _ datasource.Executor = (*Executor)(nil)
