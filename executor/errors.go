package executor

import "errors"

// ErrLoopLimit is returned when a program passes its loop guard more times
// than the configured limit.
var ErrLoopLimit = errors.New("maximum execution iterations exceeded")

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("executor closed")

// ProgramError is an uncaught error raised by the program itself, including
// syntax errors in the generated source.
type ProgramError struct {
	Message string
}

func (e *ProgramError) Error() string {
	return e.Message
}
