package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flowman-io/flowman/pkg/flow"
	"github.com/flowman-io/flowman/pkg/logging"
)

// TaskRegistry maps task type identifiers to factories. It is populated
// at process initialization and read-only at execution time; reads are
// safe from concurrent executions.
type TaskRegistry struct {
	factories map[string]TaskFactory
	logger    logging.Logger
	mu        sync.RWMutex
}

// NewTaskRegistry creates an empty task registry
func NewTaskRegistry(logger logging.Logger) *TaskRegistry {
	return &TaskRegistry{
		factories: make(map[string]TaskFactory),
		logger:    logger,
	}
}

// Register adds a factory for the given task type. Registration is
// idempotent per type: the last registration wins, and re-registration
// logs a warning.
func (r *TaskRegistry) Register(taskType string, factory TaskFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[taskType]; exists {
		r.logger.Warn("task type re-registered, previous factory replaced",
			logging.F("task_type", taskType))
	}
	r.factories[taskType] = factory
}

// Create instantiates a task of the given type. It returns an error
// wrapping flow.ErrUnknownTaskType when no factory is registered.
func (r *TaskRegistry) Create(taskType string, name string, params map[string]interface{}) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[taskType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrUnknownTaskType, taskType)
	}

	task, err := factory(name, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create task %q of type %q: %w", name, taskType, err)
	}
	return task, nil
}

// Types returns the registered task types in sorted order
func (r *TaskRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for taskType := range r.factories {
		types = append(types, taskType)
	}
	sort.Strings(types)
	return types
}
