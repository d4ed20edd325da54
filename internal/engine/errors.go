package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidNextStep is returned when a router resolves to a name that does
// not match any node in the graph.
var ErrInvalidNextStep = errors.New("invalid next step")

// ErrImplicitFanOut is returned when execution reaches a plain step with
// more than one successor. Fan-out must be declared as an explicit parallel
// group.
var ErrImplicitFanOut = errors.New("implicit fan-out is not supported")

// ExecutionError is the single error type surfaced to callers of Run. It
// records which step was executing and wraps the originating cause, so a
// caller can render an actionable message without inspecting engine
// internals.
type ExecutionError struct {
	// Step is the name of the node that was executing when the run failed.
	Step string
	// Err is the originating cause.
	Err error
}

func (e *ExecutionError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("flow execution failed: %v", e.Err)
	}
	return fmt.Sprintf("flow execution failed at step %q: %v", e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func stepError(step string, err error) error {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExecutionError{Step: step, Err: err}
}
