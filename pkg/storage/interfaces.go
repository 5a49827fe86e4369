// Package storage provides persistence backends for flow definitions and
// execution states.
package storage

import "github.com/flowman-io/flowman/pkg/flow"

// Provider defines the interface for persistence backends
type Provider interface {
	// Initialize sets up the storage backend
	Initialize() error

	// Close cleans up resources
	Close() error

	// GetFlowStore returns a store for flow definitions
	GetFlowStore() FlowStore

	// GetExecutionStore returns a store for execution data
	GetExecutionStore() ExecutionStore
}

// FlowStore manages flow definition persistence
type FlowStore interface {
	// SaveFlow persists a flow definition, keyed by its ID
	SaveFlow(def flow.Definition) error

	// GetFlow retrieves a flow definition
	GetFlow(flowID string) (flow.Definition, error)

	// ListFlows returns all stored flow definitions
	ListFlows() ([]flow.Definition, error)

	// DeleteFlow removes a flow definition
	DeleteFlow(flowID string) error
}

// ExecutionStore manages execution state persistence. The engine writes
// terminal states only; running state lives in the engine's run registry.
type ExecutionStore interface {
	// SaveExecution persists an execution state
	SaveExecution(state flow.ExecutionState) error

	// GetExecution retrieves an execution state
	GetExecution(executionID string) (flow.ExecutionState, error)

	// ListExecutions returns all stored execution states
	ListExecutions() ([]flow.ExecutionState, error)

	// DeleteExecution removes an execution state
	DeleteExecution(executionID string) error
}
