package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// RetryOptions configures Retry.
type RetryOptions struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps any single wait.
	MaxDelay time.Duration

	// Multiplier grows the wait after each failed attempt.
	Multiplier float64

	// Timeout bounds each attempt. Zero disables the per-attempt deadline.
	Timeout time.Duration

	// OnRetry is called before each wait with the 1-based number of the
	// attempt that failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetryOptions returns 3 attempts, 1s initial delay doubling up to 10s,
// and a 30s per-attempt timeout.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Timeout:      30 * time.Second,
	}
}

func (o RetryOptions) withDefaults() RetryOptions {
	def := DefaultRetryOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = def.InitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = def.MaxDelay
	}
	if o.MaxDelay < o.InitialDelay {
		o.MaxDelay = o.InitialDelay
	}
	if o.Multiplier < 1 {
		o.Multiplier = def.Multiplier
	}
	return o
}

// schedule builds the jitter-free exponential schedule: the wait before
// attempt k+1 is min(InitialDelay * Multiplier^(k-1), MaxDelay).
func (o RetryOptions) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.InitialDelay
	b.MaxInterval = o.MaxDelay
	b.Multiplier = o.Multiplier
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Retry runs op up to MaxAttempts times. Each attempt runs under WithTimeout.
// A failure the normalizer classifies as non-retryable stops immediately.
// The error of the last attempt is returned as op produced it.
func Retry[T any](ctx context.Context, opts RetryOptions, op func(context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := WithTimeout(ctx, opts.Timeout, op)
		if err == nil {
			return v, nil
		}
		if !fault.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(opts.schedule()),
		backoff.WithMaxTries(uint(opts.MaxAttempts)), // #nosec G115 -- positive after withDefaults
		backoff.WithMaxElapsedTime(0),
	}
	if opts.OnRetry != nil {
		retryOpts = append(retryOpts, backoff.WithNotify(func(err error, wait time.Duration) {
			opts.OnRetry(attempt, err, wait)
		}))
	}

	v, err := backoff.Retry(ctx, operation, retryOpts...)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return v, err
}
