package tasks

import (
	"context"
	"time"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
	"github.com/flowman-io/flowman/pkg/logging"
)

// PrintTask logs a message. Useful for wiring checkpoints into a flow.
type PrintTask struct {
	name   string
	params map[string]interface{}
	logger logging.Logger
}

// NewPrintFactory returns the factory for the "print" task type
func NewPrintFactory(logger logging.Logger) engine.TaskFactory {
	return func(name string, params map[string]interface{}) (engine.Task, error) {
		return &PrintTask{name: name, params: params, logger: logger}, nil
	}
}

// Execute runs the task against the shared execution context
func (t *PrintTask) Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult {
	started := time.Now().UTC()

	if simulatedFailure(t.params, 0) {
		return failureResult(t.name, started, "simulated failure", "failure_rate triggered")
	}

	message := stringParam(t.params, "message", "default print task message")
	t.logger.Info(message, logging.F("task", t.name))

	return successResult(t.name, started, "message printed", map[string]interface{}{
		"message_printed": message,
	})
}
