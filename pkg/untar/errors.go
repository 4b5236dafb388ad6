package untar

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned synchronously by Extract when the input
	// is not a usable buffer.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEnvironmentUnsupported is returned synchronously by Extract when no
	// worker can be spawned in this environment.
	ErrEnvironmentUnsupported = errors.New("worker implementation is not available in this environment")

	// ErrBufferMoved is returned when a Buffer is used after its contents were
	// transferred.
	ErrBufferMoved = errors.New("buffer has been transferred")
)

// WorkerFaultError reports that the worker itself failed outside the message
// protocol, for example because it could not start or exited early.
type WorkerFaultError struct {
	Err error
}

func (e *WorkerFaultError) Error() string {
	return fmt.Sprintf("worker fault: %v", e.Err)
}

func (e *WorkerFaultError) Unwrap() error {
	return e.Err
}

// ExtractionError carries the message of a worker error report verbatim.
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string {
	return e.Message
}

// ProtocolViolationError reports a message the extractor does not understand.
type ProtocolViolationError struct {
	Tag    string
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unknown message from worker: %s (%s)", e.Tag, e.Reason)
	}
	return fmt.Sprintf("unknown message from worker: %s", e.Tag)
}

// SyntaxError is returned by the structured views of an Entry when its
// decoded text is not a well-formed document.
type SyntaxError struct {
	Entry  string
	Format string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("failed to parse %s as %s: %v", e.Entry, e.Format, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
