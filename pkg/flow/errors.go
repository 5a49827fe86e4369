package flow

import (
	"errors"
	"fmt"
)

// Errors surfaced across the engine and its callers
var (
	// ErrUnknownTaskType indicates no constructor is registered for a task_type
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrExecutionNotFound indicates the execution ID is not in the run registry
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrFlowNotFound indicates the flow definition does not exist
	ErrFlowNotFound = errors.New("flow not found")

	// ErrExecutionCanceled indicates the run loop observed a cancellation request
	ErrExecutionCanceled = errors.New("execution canceled")
)

// DefinitionError describes a structurally invalid flow definition. It is
// surfaced at flow-creation time; execution is never attempted.
type DefinitionError struct {
	// Reason describes the violated invariant
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid flow definition: %s", e.Reason)
}

// IsDefinitionError reports whether err is (or wraps) a DefinitionError
func IsDefinitionError(err error) bool {
	var defErr *DefinitionError
	return errors.As(err, &defErr)
}

// EngineFault describes an unexpected error inside the run loop itself,
// as opposed to a business failure reported by a task.
type EngineFault struct {
	// ExecutionID of the run that faulted
	ExecutionID string

	// TaskName is the task position at the time of the fault, if any
	TaskName string

	// Cause is the underlying error or recovered panic value
	Cause error
}

func (e *EngineFault) Error() string {
	if e.TaskName != "" {
		return fmt.Sprintf("engine fault in execution %s at task %s: %v", e.ExecutionID, e.TaskName, e.Cause)
	}
	return fmt.Sprintf("engine fault in execution %s: %v", e.ExecutionID, e.Cause)
}

func (e *EngineFault) Unwrap() error {
	return e.Cause
}
