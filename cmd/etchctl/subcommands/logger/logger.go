package logger

import (
	"fmt"
	"io"
	"log"
)

// Null discards everything. Tests pass it to tasks.
func Null() *log.Logger {
	return log.New(io.Discard, "", log.LstdFlags)
}

// For returns a logger writing to w, prefixed with the command name.
func For(w io.Writer, command string) *log.Logger {
	return log.New(w, fmt.Sprintf("[%s] ", command), log.LstdFlags)
}
