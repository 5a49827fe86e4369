package flow

import "time"

// TaskStatus represents the outcome of a single task execution
type TaskStatus string

const (
	// TaskSuccess indicates the task completed successfully
	TaskSuccess TaskStatus = "success"

	// TaskFailure indicates the task reported a business-level failure
	TaskFailure TaskStatus = "failure"

	// TaskSkipped indicates the task was skipped
	TaskSkipped TaskStatus = "skipped"
)

// ExecutionStatus represents the overall state of a flow execution
type ExecutionStatus string

const (
	// ExecutionPending means the execution has been created but not started
	ExecutionPending ExecutionStatus = "pending"

	// ExecutionRunning means the run loop is in progress
	ExecutionRunning ExecutionStatus = "running"

	// ExecutionCompleted means the flow terminated with a successful last task
	ExecutionCompleted ExecutionStatus = "completed"

	// ExecutionFailed means the flow terminated after a failure
	ExecutionFailed ExecutionStatus = "failed"
)

// Terminal reports whether the status is COMPLETED or FAILED. Terminal
// executions are never mutated again.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

// TaskResult is the immutable record of one task execution
type TaskResult struct {
	// TaskName is the name of the task that produced this result
	TaskName string `json:"task_name"`

	// Status of the task execution
	Status TaskStatus `json:"status"`

	// Message describes the outcome in human terms
	Message string `json:"message"`

	// Payload is structured output exposed to downstream tasks
	Payload map[string]interface{} `json:"payload,omitempty"`

	// Error holds the failure detail when Status is failure
	Error string `json:"error,omitempty"`

	// StartedAt is when the task began executing
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the task produced its outcome
	EndedAt time.Time `json:"ended_at"`
}

// Succeeded reports whether the result carries a success status
func (r TaskResult) Succeeded() bool {
	return r.Status == TaskSuccess
}

// ExecutionState is the per-run record owned by the engine. It is mutated
// only by the run loop and read concurrently through Clone.
type ExecutionState struct {
	// ExecutionID uniquely identifies this run
	ExecutionID string `json:"execution_id"`

	// FlowID references the definition this run was created from
	FlowID string `json:"flow_id"`

	// FlowName is the display name of the flow
	FlowName string `json:"flow_name,omitempty"`

	// Status of the execution
	Status ExecutionStatus `json:"status"`

	// CurrentTask is the task about to run or last run
	CurrentTask string `json:"current_task,omitempty"`

	// Results is the ordered trace of task results
	Results []TaskResult `json:"results"`

	// Context is the key-value store shared between tasks, namespaced by
	// task name
	Context map[string]interface{} `json:"context,omitempty"`

	// Error message when the execution failed outside a task result
	Error string `json:"error,omitempty"`

	// StartTime is when the run loop started
	StartTime time.Time `json:"start_time,omitempty"`

	// EndTime is when the execution reached a terminal status
	EndTime time.Time `json:"end_time,omitempty"`
}

// Clone returns a deep-enough copy of the state for safe hand-off to
// readers while the run loop is still mutating the original. Results are
// immutable once appended, so copying the slice header contents suffices.
func (s *ExecutionState) Clone() *ExecutionState {
	out := *s

	out.Results = make([]TaskResult, len(s.Results))
	copy(out.Results, s.Results)

	out.Context = make(map[string]interface{}, len(s.Context))
	for k, v := range s.Context {
		out.Context[k] = v
	}

	return &out
}

// LastResult returns the most recent task result, or nil when no task has
// completed yet
func (s *ExecutionState) LastResult() *TaskResult {
	if len(s.Results) == 0 {
		return nil
	}
	return &s.Results[len(s.Results)-1]
}
