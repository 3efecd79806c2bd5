package errorutil

import (
	"context"
	"time"
)

// DefaultCallTimeout is used by Bounded when timeout is not positive.
const DefaultCallTimeout = 2 * time.Second

// Bounded runs fn under its own deadline. The caller is released when the deadline passes
// even if fn ignores its context. Not-found errors pass through unchanged; other failures
// are mapped with FromContext, so an expired deadline reports a timeout.
func Bounded[T any](ctx context.Context, timeout time.Duration, operation string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && !IsNotFound(r.err) {
			return r.value, FromContext(operation, r.err)
		}
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, FromContext(operation, ctx.Err())
	}
}
