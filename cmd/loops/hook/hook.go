package hook

import (
	"context"
	"errors"
)

// Hook surrounds a change made by a loop, like marking an order notified.
type Hook[T any, R any] interface {
	// Before runs ahead of the change. An error vetoes it for this run;
	// the loop picks the value again later.
	Before(context.Context, T) (R, error)

	// After runs once the change is committed.
	After(context.Context, T) error
}

// ErrHookFailed is wrapped by every error of hooks.
var ErrHookFailed = errors.New("hook failed")
