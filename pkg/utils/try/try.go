// Package try shortens handling of (value, error) pairs where an error is fatal,
// mainly in tests:
//
//	pool := try.To(pgxpool.Connect(ctx, url)).OrFatal(t)
package try

// Fataler is something having method `Fatal`, like *testing.T or *log.Logger.
type Fataler interface {
	Fatal(...any)
}

// Either is a pair of a value and an error.
//
// When the error is nil, it is "ok" and the value is valid. Otherwise, it is "ng".
type Either[T any] interface {
	// Get the pair back.
	Get() (T, error)

	// OrFatal returns the value of "ok".
	//
	// For "ng", it calls ftl.Fatal(err). When ftl has a method Helper (like *testing.T),
	// it is called before Fatal.
	OrFatal(ftl Fataler) T

	// OrDefault returns the value of "ok", or d for "ng".
	OrDefault(d T) T
}

func To[T any](value T, err error) Either[T] {
	return either[T]{value: value, err: err}
}

type either[T any] struct {
	value T
	err   error
}

func (e either[T]) Get() (T, error) {
	if e.err != nil {
		return *new(T), e.err
	}
	return e.value, nil
}

func (e either[T]) OrDefault(d T) T {
	if e.err != nil {
		return d
	}
	return e.value
}

func (e either[T]) OrFatal(ftl Fataler) T {
	if e.err == nil {
		return e.value
	}
	fatal(ftl, e.err)
	return *new(T)
}

// Either2 is Either for functions returning two values and an error.
type Either2[A, B any] interface {
	Get() (A, B, error)
	OrFatal(ftl Fataler) (A, B)
}

func To2[A, B any](a A, b B, err error) Either2[A, B] {
	return either2[A, B]{a: a, b: b, err: err}
}

type either2[A, B any] struct {
	a   A
	b   B
	err error
}

func (e either2[A, B]) Get() (A, B, error) {
	if e.err != nil {
		return *new(A), *new(B), e.err
	}
	return e.a, e.b, nil
}

func (e either2[A, B]) OrFatal(ftl Fataler) (A, B) {
	if e.err == nil {
		return e.a, e.b
	}
	fatal(ftl, e.err)
	return *new(A), *new(B)
}

func fatal(ftl Fataler, err error) {
	if hlp, ok := ftl.(interface{ Helper() }); ok {
		hlp.Helper()
	}
	ftl.Fatal(err)
}
