package recurring

import (
	"context"

	"github.com/cozyartz/etchNFT/pkg/loop"
)

// Task is a body of a loop which does not decide what to do next by itself.
//
// # Returns
//
// - T: value passed to the next run, like a cursor.
//
// - bool: true when the task did something and more backlog may be left.
//
// - error
type Task[T any] func(context.Context, T) (T, bool, error)

// Applied makes a loop.Task letting p decide what to do next.
func (rt Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, t T) (T, loop.Next) {
		next, updated, err := rt(ctx, t)
		return next, p.Next(updated, err)
	}
}
