// Package errors marks errors with where they passed through.
//
//	return xe.Wrap(err)
//
// A wrapped error reads like
//
//	@ funcname "file" lNN <- cause
//
// so replacing "<-" with a newline gives a trace of the wrapping points.
// errors.Is and errors.As see through the marks.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

type located struct {
	at   string
	note string
	err  error
}

func (e *located) Error() string {
	if e.note == "" {
		return fmt.Sprintf("@ %s <- %s", e.at, e.err)
	}
	return fmt.Sprintf("@ %s (%s) <- %s", e.at, e.note, e.err)
}

func (e *located) Unwrap() error {
	return e.err
}

func New(text string) error {
	return wrap("", errors.New(text))
}

// Wrap marks err with the caller. Wrap(nil) is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return wrap("", err)
}

// WrapWithNotef is Wrap adding a formatted note, like the id being processed.
func WrapWithNotef(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return wrap(fmt.Sprintf(format, args...), err)
}

// wrap must be called directly from the exported functions.
func wrap(note string, err error) error {
	at := `(unknown func) "?" l-1`
	if pc, file, line, ok := runtime.Caller(2); ok {
		name := "(unknown func)"
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = fn.Name()
		}
		at = fmt.Sprintf(`%s "%s" l%d`, name, file, line)
	}
	return &located{at: at, note: note, err: err}
}
