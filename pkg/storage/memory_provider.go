package storage

import (
	"fmt"
	"sync"

	"github.com/flowman-io/flowman/pkg/flow"
)

// MemoryProvider implements the Provider interface using in-memory storage
type MemoryProvider struct {
	flowStore      *MemoryFlowStore
	executionStore *MemoryExecutionStore
}

// NewMemoryProvider creates a new in-memory storage provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		flowStore:      NewMemoryFlowStore(),
		executionStore: NewMemoryExecutionStore(),
	}
}

// Initialize sets up the storage backend
func (p *MemoryProvider) Initialize() error {
	// Nothing to initialize for in-memory storage
	return nil
}

// Close cleans up resources
func (p *MemoryProvider) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// GetFlowStore returns a store for flow definitions
func (p *MemoryProvider) GetFlowStore() FlowStore {
	return p.flowStore
}

// GetExecutionStore returns a store for execution data
func (p *MemoryProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// MemoryFlowStore implements the FlowStore interface using in-memory storage
type MemoryFlowStore struct {
	flows map[string]flow.Definition
	mu    sync.RWMutex
}

// NewMemoryFlowStore creates a new in-memory flow store
func NewMemoryFlowStore() *MemoryFlowStore {
	return &MemoryFlowStore{flows: make(map[string]flow.Definition)}
}

// SaveFlow persists a flow definition, keyed by its ID
func (s *MemoryFlowStore) SaveFlow(def flow.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[def.ID] = def
	return nil
}

// GetFlow retrieves a flow definition
func (s *MemoryFlowStore) GetFlow(flowID string) (flow.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.flows[flowID]
	if !ok {
		return flow.Definition{}, fmt.Errorf("%w: %s", flow.ErrFlowNotFound, flowID)
	}
	return def, nil
}

// ListFlows returns all stored flow definitions
func (s *MemoryFlowStore) ListFlows() ([]flow.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]flow.Definition, 0, len(s.flows))
	for _, def := range s.flows {
		defs = append(defs, def)
	}
	return defs, nil
}

// DeleteFlow removes a flow definition
func (s *MemoryFlowStore) DeleteFlow(flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[flowID]; !ok {
		return fmt.Errorf("%w: %s", flow.ErrFlowNotFound, flowID)
	}
	delete(s.flows, flowID)
	return nil
}

// MemoryExecutionStore implements the ExecutionStore interface using
// in-memory storage
type MemoryExecutionStore struct {
	executions map[string]flow.ExecutionState
	mu         sync.RWMutex
}

// NewMemoryExecutionStore creates a new in-memory execution store
func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{executions: make(map[string]flow.ExecutionState)}
}

// SaveExecution persists an execution state
func (s *MemoryExecutionStore) SaveExecution(state flow.ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[state.ExecutionID] = state
	return nil
}

// GetExecution retrieves an execution state
func (s *MemoryExecutionStore) GetExecution(executionID string) (flow.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.executions[executionID]
	if !ok {
		return flow.ExecutionState{}, fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	return state, nil
}

// ListExecutions returns all stored execution states
func (s *MemoryExecutionStore) ListExecutions() ([]flow.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]flow.ExecutionState, 0, len(s.executions))
	for _, state := range s.executions {
		states = append(states, state)
	}
	return states, nil
}

// DeleteExecution removes an execution state
func (s *MemoryExecutionStore) DeleteExecution(executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[executionID]; !ok {
		return fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	delete(s.executions, executionID)
	return nil
}
