package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
)

// WaitTask suspends the flow for a duration or until a point in time
type WaitTask struct {
	name   string
	params map[string]interface{}
}

// NewWaitTask is the factory for the "wait" task type
func NewWaitTask(name string, params map[string]interface{}) (engine.Task, error) {
	return &WaitTask{name: name, params: params}, nil
}

// Execute runs the task against the shared execution context
func (t *WaitTask) Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult {
	started := time.Now().UTC()

	if simulatedFailure(t.params, 0) {
		return failureResult(t.name, started, "simulated failure", "failure_rate triggered")
	}

	waitType := stringParam(t.params, "type", "duration")
	switch waitType {
	case "duration":
		// Accepts a "duration" string ("1500ms") or a numeric "seconds" param
		d := durationParam(t.params, "duration", 0)
		if d == 0 {
			d = durationParam(t.params, "seconds", time.Second)
		}
		sleep(ctx, d)
		return successResult(t.name, started, "wait finished", map[string]interface{}{
			"waited_for": d.String(),
			"type":       "duration",
		})

	case "until_time":
		timeStr := stringParam(t.params, "time", "")
		target, err := time.Parse(time.RFC3339, timeStr)
		if err != nil {
			return failureResult(t.name, started, "invalid wait target",
				fmt.Sprintf("time must be RFC3339 (e.g. 2006-01-02T15:04:05Z): %v", err))
		}
		if remaining := time.Until(target); remaining > 0 {
			sleep(ctx, remaining)
		}
		return successResult(t.name, started, "wait finished", map[string]interface{}{
			"waited_until": timeStr,
			"type":         "until_time",
		})

	default:
		return failureResult(t.name, started, "invalid wait type", fmt.Sprintf("unknown wait type: %s", waitType))
	}
}
