package hook

import (
	"context"
	"errors"
)

// Func is a hook calling functions. Nil functions are skipped.
type Func[T any, R any] struct {
	BeforeFn func(context.Context, T) (R, error)
	AfterFn  func(context.Context, T) error
}

func (f Func[T, R]) Before(ctx context.Context, value T) (R, error) {
	if f.BeforeFn == nil {
		return *new(R), nil
	}
	ret, err := f.BeforeFn(ctx, value)
	if err != nil {
		return ret, errors.Join(err, ErrHookFailed)
	}
	return ret, nil
}

func (f Func[T, R]) After(ctx context.Context, value T) error {
	if f.AfterFn == nil {
		return nil
	}
	if err := f.AfterFn(ctx, value); err != nil {
		return errors.Join(err, ErrHookFailed)
	}
	return nil
}
