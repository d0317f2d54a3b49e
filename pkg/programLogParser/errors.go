package programLogParser

import "errors"

var (
	// ErrMalformedLogStream is returned when a transaction's log output does
	// not open with the root invocation marker the runtime always emits first.
	ErrMalformedLogStream = errors.New("malformed log stream")

	// ErrStackUnderflow is returned when a completion marker is observed with
	// no open invocation left on the execution stack. It indicates malformed
	// input or a classification bug, never a normal condition.
	ErrStackUnderflow = errors.New("execution stack underflow")
)
