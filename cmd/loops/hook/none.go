package hook

import "context"

// None is the hook of loops without configured endpoints.
type None[T any, R any] struct{}

func (None[T, R]) Before(context.Context, T) (R, error) {
	var zero R
	return zero, nil
}

func (None[T, R]) After(context.Context, T) error {
	return nil
}
