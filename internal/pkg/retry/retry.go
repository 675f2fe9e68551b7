// Package retry provides bounded retry combinators: optimistic candidate
// probing and exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt ended in a conflict.
var ErrExhausted = errors.New("retry attempts exhausted")

// Bounded tries up to attempts candidates. next produces the candidate for
// attempt i (starting at 0) and try attempts to claim it. A try error for
// which conflict reports true moves on to the next candidate; any other
// error is returned as is. On success the claimed candidate is returned.
func Bounded[T any](
	ctx context.Context,
	attempts int,
	next func(attempt int) T,
	try func(ctx context.Context, candidate T) error,
	conflict func(error) bool,
) (T, error) {
	var zero T
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		candidate := next(i)
		err := try(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if !conflict(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

// Backoff calls fn up to attempts times, sleeping between failures for a
// delay that doubles from base and is capped at limit. onRetry, when set,
// is called before each sleep. The last error is returned.
func Backoff(
	ctx context.Context,
	attempts int,
	base, limit time.Duration,
	fn func(ctx context.Context, attempt int) error,
	onRetry func(attempt int, delay time.Duration, err error),
) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := Delay(attempt, base, limit)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
}

// Delay returns base doubled attempt-1 times, capped at limit.
func Delay(attempt int, base, limit time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}
	return d
}
