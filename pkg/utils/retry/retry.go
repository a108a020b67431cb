// Package retry repeats calls to payment providers and other remote APIs.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrRetry marks an error as transient. Blocking calls again on it.
var ErrRetry = errors.New("retry")

// ErrExhausted is returned by a Backoff made with Attempts after its last attempt.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Backoff blocks until the next attempt.
//
// It returns nil to attempt again. Otherwise (ctx.Err() or giving up) the
// caller must stop.
type Backoff func(context.Context) error

// ExponentialBackoff waits initial on its first call, then r times longer on each call.
func ExponentialBackoff(initial time.Duration, r float64) Backoff {
	interval := initial
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			interval = time.Duration(float64(interval) * r)
			return nil
		}
	}
}

// Attempts limits b to n attempts in total.
//
// The first call returns at once, so f runs without waiting.
// The following calls wait as b does, and the (n+1)-th call returns ErrExhausted.
func Attempts(n int, b Backoff) Backoff {
	count := 0
	return func(ctx context.Context) error {
		count += 1
		if n < count {
			return ErrExhausted
		}
		if count == 1 {
			return ctx.Err()
		}
		return b(ctx)
	}
}

// Blocking calls f until it succeeds or fails with an error other than ErrRetry.
//
// Before each call it waits on b. When b gives up, its error is returned
// joined with the last error of f.
func Blocking[T any](ctx context.Context, b Backoff, f func() (T, error)) (T, error) {
	var last T
	var lastErr error
	for {
		if err := b(ctx); err != nil {
			return last, errors.Join(err, lastErr)
		}

		last, lastErr = f()
		if lastErr == nil || !errors.Is(lastErr, ErrRetry) {
			return last, lastErr
		}
	}
}
