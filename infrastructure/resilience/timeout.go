package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// WithTimeout races op against a deadline of d. When the deadline wins the
// caller gets a retryable TIMEOUT_ERROR straight away; op keeps running in
// the background but sees its context cancelled. A non-positive d runs op
// inline with no deadline.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(attemptCtx)
		done <- outcome{val: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case o := <-done:
		if o.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return zero, fault.Timeout(d)
		}
		return o.val, o.err
	case <-timer.C:
		return zero, fault.Timeout(d)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
