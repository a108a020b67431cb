// Package mocks holds helpers shared by mock implementations of db interfaces.
package mocks

// CallLog records arguments of each call made to a mocked method.
type CallLog[T any] []T

func (l CallLog[T]) Times() uint {
	return uint(len(l))
}

// Last returns the argument of the latest call. It panics when never called.
func (l CallLog[T]) Last() T {
	if len(l) == 0 {
		panic("it has not been called")
	}
	return l[len(l)-1]
}
