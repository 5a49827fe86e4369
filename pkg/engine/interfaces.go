// Package engine provides the flow execution engine: it walks a task
// graph from its start task, dispatches each task, routes on the outcome
// and records per-task and per-flow state.
package engine

import (
	"context"

	"github.com/flowman-io/flowman/pkg/flow"
)

// Task is a single executable unit of work within a flow. Implementations
// report business failures through the returned TaskResult rather than by
// panicking; only programmer errors escape as panics, which the engine
// converts into an EngineFault.
type Task interface {
	// Execute runs the task against the shared execution context and
	// produces exactly one outcome
	Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult
}

// TaskFactory constructs a task instance from its spec name and parameters
type TaskFactory func(name string, params map[string]interface{}) (Task, error)

// Summary holds aggregate statistics over the engine's run registry
type Summary struct {
	// TotalExecutions is the number of executions the engine currently tracks
	TotalExecutions int `json:"total_executions"`

	// StatusCounts maps execution status to count
	StatusCounts map[flow.ExecutionStatus]int `json:"status_counts"`

	// RegisteredTaskTypes lists the task types available to flows
	RegisteredTaskTypes []string `json:"registered_task_types"`
}
