package programLogParser

import (
	"regexp"

	"github.com/pkg/errors"
)

var invokeLineRegex = regexp.MustCompile(`^Program (.*) invoke`)

// ExecutionContext tracks which program owns the log line currently being
// read. Invocation markers push a frame, completion markers pop one, and the
// top of the stack attributes every line in between.
type ExecutionContext struct {
	stack []string
}

// NewExecutionContext seeds the stack from the first log line of a
// transaction, which the runtime guarantees is the root invocation marker.
// Anything else means the stream was truncated or reordered upstream.
func NewExecutionContext(firstLine string) (*ExecutionContext, error) {
	matches := invokeLineRegex.FindStringSubmatch(firstLine)
	if len(matches) < 2 {
		return nil, errors.Wrapf(ErrMalformedLogStream, "first log line %q is not a program invocation", firstLine)
	}
	return &ExecutionContext{
		stack: []string{matches[1]},
	}, nil
}

// Current returns the program executing at the current line.
func (ec *ExecutionContext) Current() (string, error) {
	if len(ec.stack) == 0 {
		return "", errors.Wrap(ErrStackUnderflow, "no executing program on the stack")
	}
	return ec.stack[len(ec.stack)-1], nil
}

// Depth reports how many invocation frames are open.
func (ec *ExecutionContext) Depth() int {
	return len(ec.stack)
}

// Push records entry into a nested invocation.
func (ec *ExecutionContext) Push(programID string) {
	ec.stack = append(ec.stack, programID)
}

// Pop records completion of the innermost invocation. Popping the root frame
// is legal and happens at the end of every balanced stream; popping with
// nothing open is not.
func (ec *ExecutionContext) Pop() error {
	if len(ec.stack) == 0 {
		return errors.Wrap(ErrStackUnderflow, "completion marker with no open invocation")
	}
	ec.stack = ec.stack[:len(ec.stack)-1]
	return nil
}
