// Package loop drives the background workers of the storefront.
//
// A worker is a Task run over and over by Start. Each run tells Start what
// happens next: run again (after a pause) or stop.
package loop

import (
	"context"
	"fmt"
	"time"
)

// Next is what Start does after a run of a Task.
//
// The zero value runs the task again at once.
type Next struct {
	stop     bool
	err      error
	interval time.Duration
}

func (n Next) String() string {
	switch {
	case n.err != nil:
		return fmt.Sprintf("stop: %v", n.err)
	case n.stop:
		return "stop"
	default:
		return fmt.Sprintf("continue after %s", n.interval)
	}
}

// Continue runs the task again after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break stops the loop. Start returns err, so nil is a normal end.
func Break(err error) Next {
	return Next{stop: true, err: err}
}

// Task is one run of a worker.
//
// It gets the value the previous run returned (init on the first run).
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task until it breaks or ctx is done.
//
// Example: resolve payment events until the inbox is drained.
//
//	Start(ctx, domain.EventCursor{}, func(ctx context.Context, c domain.EventCursor) (domain.EventCursor, Next) {
//		next, picked, err := events.PickAndResolve(ctx, c, reconcile.Decide)
//		if err != nil {
//			return c, Break(err)
//		}
//		if !picked {
//			return next, Break(nil)
//		}
//		return next, Continue(0)
//	})
//
// It returns the last value task returned, together with the error given
// to Break or ctx.Err(). When ctx is done before the first run, init is
// returned and task is never called.
func Start[T any](ctx context.Context, init T, task Task[T], options ...Option) (T, error) {
	if err := ctx.Err(); err != nil {
		return init, err
	}

	value := init
	for {
		v, next := runOnce(ctx, value, task, options)
		if next.stop {
			return v, next.err
		}
		value = v

		timer := time.NewTimer(next.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}

func runOnce[T any](ctx context.Context, value T, task Task[T], options []Option) (T, Next) {
	rc := runContext{ctx: ctx}
	for _, opt := range options {
		rc = opt(rc)
	}
	defer rc.release()
	return task(rc.ctx, value)
}

type runContext struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

func (rc runContext) release() {
	for i := len(rc.cancels) - 1; 0 <= i; i-- {
		rc.cancels[i]()
	}
}

// Option changes the context passed to each run of a task.
type Option func(runContext) runContext

// WithTimeout limits each run of the task to d.
func WithTimeout(d time.Duration) Option {
	return func(rc runContext) runContext {
		ctx, cancel := context.WithTimeout(rc.ctx, d)
		return runContext{ctx: ctx, cancels: append(rc.cancels, cancel)}
	}
}
