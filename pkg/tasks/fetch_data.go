package tasks

import (
	"context"
	"time"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
)

// FetchDataTask simulates fetching records from an external source. The
// delay and failure rate are driven by parameters so flows can exercise
// both branches deterministically.
type FetchDataTask struct {
	name   string
	params map[string]interface{}
}

// NewFetchDataTask is the factory for the "fetch_data" task type
func NewFetchDataTask(name string, params map[string]interface{}) (engine.Task, error) {
	return &FetchDataTask{name: name, params: params}, nil
}

// Execute runs the task against the shared execution context
func (t *FetchDataTask) Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult {
	started := time.Now().UTC()

	sleep(ctx, durationParam(t.params, "delay", 50*time.Millisecond))

	if simulatedFailure(t.params, 0.1) {
		return failureResult(t.name, started, "failed to fetch data from external source", "connection timeout")
	}

	payload := map[string]interface{}{
		"records": []interface{}{
			map[string]interface{}{"id": 1, "name": "Item 1", "value": 100.0},
			map[string]interface{}{"id": 2, "name": "Item 2", "value": 200.0},
			map[string]interface{}{"id": 3, "name": "Item 3", "value": 300.0},
		},
		"total_count": 3,
		"source":      stringParam(t.params, "data_source", "default_api"),
	}

	return successResult(t.name, started, "successfully fetched data", payload)
}

// durationParam parses a duration parameter given either as a Go duration
// string ("250ms") or a number of seconds
func durationParam(params map[string]interface{}, key string, def time.Duration) time.Duration {
	switch v := params[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		return def
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	default:
		return def
	}
}

// sleep waits for the duration or until the context is done
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
