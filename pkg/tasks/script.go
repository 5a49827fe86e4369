package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
	"github.com/flowman-io/flowman/pkg/logging"
)

// ScriptTask runs a JavaScript snippet with the execution context and
// task parameters bound as globals. The script's return value becomes the
// task payload; a thrown error or a returned {failed: true} object is
// reported as a business failure.
type ScriptTask struct {
	name   string
	params map[string]interface{}
	script string
	logger logging.Logger
}

// NewScriptFactory returns the factory for the "script" task type
func NewScriptFactory(logger logging.Logger) engine.TaskFactory {
	return func(name string, params map[string]interface{}) (engine.Task, error) {
		script := stringParam(params, "script", "")
		if script == "" {
			return nil, fmt.Errorf("script parameter is required and must be a string")
		}
		return &ScriptTask{name: name, params: params, script: script, logger: logger}, nil
	}
}

// Execute runs the task against the shared execution context
func (t *ScriptTask) Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult {
	started := time.Now().UTC()

	vm := goja.New()

	// Route console.log through the structured logger
	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]interface{}, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.Export())
		}
		t.logger.Info(fmt.Sprint(parts...), logging.F("task", t.name), logging.F("source", "script"))
		return goja.Undefined()
	})
	_ = vm.Set("console", console)
	_ = vm.Set("context", execCtx)
	_ = vm.Set("params", t.params)

	// Wrap the script in a function so it can use return statements
	wrapped := "(function() {\n" + t.script + "\n})()"
	value, err := vm.RunString(wrapped)
	if err != nil {
		return failureResult(t.name, started, "script execution failed", err.Error())
	}

	payload := map[string]interface{}{}
	switch exported := value.Export().(type) {
	case map[string]interface{}:
		payload = exported
	case nil:
	default:
		payload["result"] = exported
	}

	if failed, ok := payload["failed"].(bool); ok && failed {
		message := "script reported failure"
		if m, ok := payload["message"].(string); ok && m != "" {
			message = m
		}
		result := failureResult(t.name, started, message, "")
		result.Payload = payload
		return result
	}

	return successResult(t.name, started, "script executed successfully", payload)
}
