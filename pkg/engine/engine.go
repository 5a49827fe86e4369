package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowman-io/flowman/pkg/flow"
	"github.com/flowman-io/flowman/pkg/logging"
	"github.com/flowman-io/flowman/pkg/scripting"
)

// ExecutionStore persists terminal execution states. The engine treats
// persistence as best-effort: a store failure is logged, never propagated
// into the execution's own status.
type ExecutionStore interface {
	// SaveExecution persists an execution state
	SaveExecution(state flow.ExecutionState) error
}

// Listener receives execution lifecycle events. Used by the API layer to
// push real-time updates over websockets.
type Listener interface {
	// OnStatusChange is called when an execution changes status
	OnStatusChange(state *flow.ExecutionState)

	// OnTaskResult is called after each task result is recorded
	OnTaskResult(executionID string, result flow.TaskResult)
}

// execution is one entry in the run registry. Its mutex guards the state
// against concurrent status reads while the run loop mutates it.
type execution struct {
	def      *flow.Definition
	state    *flow.ExecutionState
	canceled bool
	mu       sync.RWMutex
}

// Engine orchestrates flow executions end-to-end. Each execution runs
// strictly sequentially; different executions may run concurrently and
// share nothing but the run registry.
type Engine struct {
	registry  *TaskRegistry
	evaluator ConditionEvaluator
	evalExpr  scripting.ExpressionEvaluator
	store     ExecutionStore
	listener  Listener
	logger    logging.Logger

	executions map[string]*execution
	mu         sync.RWMutex
}

// Option configures an Engine
type Option func(*Engine)

// WithExecutionStore makes the engine persist terminal execution states
func WithExecutionStore(store ExecutionStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithListener attaches an execution event listener
func WithListener(listener Listener) Option {
	return func(e *Engine) { e.listener = listener }
}

// WithExpressionEvaluator sets the evaluator used to interpolate ${...}
// expressions in task parameters before each task run
func WithExpressionEvaluator(eval scripting.ExpressionEvaluator) Option {
	return func(e *Engine) { e.evalExpr = eval }
}

// NewEngine creates a flow engine backed by the given task registry
func NewEngine(registry *TaskRegistry, logger logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:   registry,
		evalExpr:   scripting.NewPathExpressionEvaluator(),
		logger:     logger,
		executions: make(map[string]*execution),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateExecution validates the definition and creates a pending
// execution for it, returning the new execution ID. Structurally invalid
// definitions are rejected with a DefinitionError and no execution ID is
// issued.
func (e *Engine) CreateExecution(def *flow.Definition) (string, error) {
	if def == nil {
		return "", &flow.DefinitionError{Reason: "definition is nil"}
	}
	if err := def.Validate(); err != nil {
		return "", err
	}

	executionID := uuid.New().String()
	state := &flow.ExecutionState{
		ExecutionID: executionID,
		FlowID:      def.ID,
		FlowName:    def.Name,
		Status:      flow.ExecutionPending,
		Results:     []flow.TaskResult{},
		Context:     make(map[string]interface{}),
	}

	e.mu.Lock()
	e.executions[executionID] = &execution{def: def, state: state}
	e.mu.Unlock()

	e.logger.LogFlowExecution(def.ID, executionID, "created", map[string]interface{}{
		"flow_name": def.Name,
	})

	return executionID, nil
}

// Run executes a pending execution to completion and returns its final
// state. An execution runs at most once: running it again after it has
// started returns an error.
func (e *Engine) Run(executionID string) (*flow.ExecutionState, error) {
	exec, err := e.lookup(executionID)
	if err != nil {
		return nil, err
	}

	exec.mu.Lock()
	if exec.state.Status != flow.ExecutionPending {
		status := exec.state.Status
		exec.mu.Unlock()
		return nil, fmt.Errorf("execution %s is %s, only pending executions can be run", executionID, status)
	}
	exec.state.Status = flow.ExecutionRunning
	exec.state.StartTime = time.Now().UTC()
	exec.mu.Unlock()

	e.notifyStatus(exec)
	e.runLoop(exec)

	return e.GetState(executionID)
}

// RunAsync starts the execution in a background goroutine. The returned
// error only covers preconditions; run outcomes are observed via GetState.
func (e *Engine) RunAsync(executionID string) error {
	exec, err := e.lookup(executionID)
	if err != nil {
		return err
	}

	exec.mu.Lock()
	if exec.state.Status != flow.ExecutionPending {
		status := exec.state.Status
		exec.mu.Unlock()
		return fmt.Errorf("execution %s is %s, only pending executions can be run", executionID, status)
	}
	exec.state.Status = flow.ExecutionRunning
	exec.state.StartTime = time.Now().UTC()
	exec.mu.Unlock()

	e.notifyStatus(exec)
	go e.runLoop(exec)
	return nil
}

// runLoop walks the task graph from the start task until a terminal step.
// It is the only writer of the execution's state.
func (e *Engine) runLoop(exec *execution) {
	def := exec.def
	executionID := exec.state.ExecutionID

	// An unexpected error inside the loop is an engine fault: the
	// execution fails loudly, without a task result for the fault itself.
	defer func() {
		if r := recover(); r != nil {
			fault := &flow.EngineFault{
				ExecutionID: executionID,
				TaskName:    e.currentTask(exec),
				Cause:       fmt.Errorf("%v", r),
			}
			e.logger.Error("engine fault", logging.F("execution_id", executionID), logging.F("error", fault.Error()))
			e.finish(exec, flow.ExecutionFailed, fault.Error())
		}
	}()

	currentTask := def.StartTask

	for {
		// Cooperative cancellation, checked between steps only
		if e.isCanceled(exec) {
			e.finish(exec, flow.ExecutionFailed, flow.ErrExecutionCanceled.Error())
			return
		}

		// Resolve the current task. Validation makes this unreachable for
		// definitions created through the engine; a miss here is a
		// structural error caught too late.
		spec := def.TaskByName(currentTask)
		if spec == nil {
			e.logger.Error("task not found in flow definition",
				logging.F("execution_id", executionID), logging.F("task", currentTask))
			e.finish(exec, flow.ExecutionFailed, fmt.Sprintf("task %q not found in flow definition", currentTask))
			return
		}

		exec.mu.Lock()
		exec.state.CurrentTask = currentTask
		contextSnapshot := exec.state.Clone().Context
		exec.mu.Unlock()

		// Interpolate ${...} expressions in parameters against the
		// accumulated context before instantiating the task
		params, err := scripting.EvaluateParams(e.evalExpr, spec.Parameters, contextSnapshot)
		if err != nil {
			e.logger.Warn("parameter interpolation failed, using raw parameters",
				logging.F("execution_id", executionID), logging.F("task", currentTask), logging.F("error", err.Error()))
			params = spec.Parameters
		}

		// Instantiate the task. An unknown type ends the execution: the
		// task never started, so no result is recorded for it.
		task, err := e.registry.Create(spec.TaskType, spec.Name, params)
		if err != nil {
			e.logger.Error("failed to instantiate task",
				logging.F("execution_id", executionID), logging.F("task", currentTask), logging.F("error", err.Error()))
			e.finish(exec, flow.ExecutionFailed, err.Error())
			return
		}

		e.logger.LogTaskExecution(def.ID, executionID, currentTask, "started", nil)

		// Execute and await the single outcome
		result := task.Execute(context.Background(), contextSnapshot)
		if result.TaskName == "" {
			result.TaskName = currentTask
		}

		e.logger.LogTaskExecution(def.ID, executionID, currentTask, "finished", map[string]interface{}{
			"status": result.Status,
		})

		// Record the result and expose its payload to later tasks under
		// the task's own name, so tasks cannot clobber each other
		exec.mu.Lock()
		exec.state.Results = append(exec.state.Results, result)
		if result.Payload != nil {
			exec.state.Context[currentTask] = result.Payload
		}
		exec.mu.Unlock()

		if e.listener != nil {
			e.listener.OnTaskResult(executionID, result)
		}

		// Route on the outcome
		step := e.evaluator.NextTask(result, def.ConditionForTask(currentTask))
		if step.Terminate {
			if result.Succeeded() {
				e.finish(exec, flow.ExecutionCompleted, "")
			} else {
				e.finish(exec, flow.ExecutionFailed, result.Message)
			}
			return
		}
		currentTask = step.Next
	}
}

// GetState returns a copy of the execution's current state. After the
// execution reaches a terminal status the returned data never changes.
func (e *Engine) GetState(executionID string) (*flow.ExecutionState, error) {
	exec, err := e.lookup(executionID)
	if err != nil {
		return nil, err
	}

	exec.mu.RLock()
	defer exec.mu.RUnlock()
	return exec.state.Clone(), nil
}

// GetTaskResult returns the recorded result for a single task of an execution
func (e *Engine) GetTaskResult(executionID string, taskName string) (*flow.TaskResult, error) {
	state, err := e.GetState(executionID)
	if err != nil {
		return nil, err
	}

	for i := range state.Results {
		if state.Results[i].TaskName == taskName {
			return &state.Results[i], nil
		}
	}
	return nil, fmt.Errorf("no result for task %q in execution %s", taskName, executionID)
}

// ListExecutions returns copies of all tracked execution states
func (e *Engine) ListExecutions() []*flow.ExecutionState {
	e.mu.RLock()
	execs := make([]*execution, 0, len(e.executions))
	for _, exec := range e.executions {
		execs = append(execs, exec)
	}
	e.mu.RUnlock()

	states := make([]*flow.ExecutionState, 0, len(execs))
	for _, exec := range execs {
		exec.mu.RLock()
		states = append(states, exec.state.Clone())
		exec.mu.RUnlock()
	}
	return states
}

// Delete removes an execution from the run registry. A running execution
// is marked for cancellation first; the run loop observes the flag
// between steps rather than interrupting an in-flight task.
func (e *Engine) Delete(executionID string) bool {
	e.mu.Lock()
	exec, ok := e.executions[executionID]
	if !ok {
		e.mu.Unlock()
		return false
	}
	delete(e.executions, executionID)
	e.mu.Unlock()

	exec.mu.Lock()
	if !exec.state.Status.Terminal() {
		exec.canceled = true
	}
	exec.mu.Unlock()

	e.logger.LogFlowExecution(exec.state.FlowID, executionID, "deleted", nil)
	return true
}

// Summary returns aggregate statistics over all tracked executions
func (e *Engine) Summary() Summary {
	states := e.ListExecutions()

	counts := make(map[flow.ExecutionStatus]int)
	for _, state := range states {
		counts[state.Status]++
	}

	return Summary{
		TotalExecutions:     len(states),
		StatusCounts:        counts,
		RegisteredTaskTypes: e.registry.Types(),
	}
}

func (e *Engine) lookup(executionID string) (*execution, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	exec, ok := e.executions[executionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	return exec, nil
}

func (e *Engine) isCanceled(exec *execution) bool {
	exec.mu.RLock()
	defer exec.mu.RUnlock()
	return exec.canceled
}

func (e *Engine) currentTask(exec *execution) string {
	exec.mu.RLock()
	defer exec.mu.RUnlock()
	return exec.state.CurrentTask
}

// finish transitions the execution to a terminal status, persists it and
// notifies listeners. Status transitions are monotonic: a terminal
// execution is never touched again.
func (e *Engine) finish(exec *execution, status flow.ExecutionStatus, errMsg string) {
	exec.mu.Lock()
	if exec.state.Status.Terminal() {
		exec.mu.Unlock()
		return
	}
	exec.state.Status = status
	exec.state.Error = errMsg
	exec.state.EndTime = time.Now().UTC()
	state := exec.state.Clone()
	exec.mu.Unlock()

	e.logger.LogFlowExecution(state.FlowID, state.ExecutionID, "finished", map[string]interface{}{
		"status": status,
		"error":  errMsg,
	})

	if e.store != nil {
		if err := e.store.SaveExecution(*state); err != nil {
			e.logger.Error("failed to persist execution state",
				logging.F("execution_id", state.ExecutionID), logging.F("error", err.Error()))
		}
	}

	e.notifyStatus(exec)
}

func (e *Engine) notifyStatus(exec *execution) {
	if e.listener == nil {
		return
	}
	exec.mu.RLock()
	state := exec.state.Clone()
	exec.mu.RUnlock()
	e.listener.OnStatusChange(state)
}
