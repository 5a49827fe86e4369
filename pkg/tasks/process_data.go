package tasks

import (
	"context"
	"time"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
)

// ProcessDataTask transforms the record set produced by an upstream fetch
// task: values are doubled and bucketed into high/low categories, with a
// summary over the whole set.
type ProcessDataTask struct {
	name   string
	params map[string]interface{}
}

// NewProcessDataTask is the factory for the "process_data" task type
func NewProcessDataTask(name string, params map[string]interface{}) (engine.Task, error) {
	return &ProcessDataTask{name: name, params: params}, nil
}

// Execute runs the task against the shared execution context
func (t *ProcessDataTask) Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult {
	started := time.Now().UTC()

	input := upstreamPayload(t.params, execCtx, "fetch", "task1")
	if input == nil {
		return failureResult(t.name, started, "no data available to process", "missing input data from previous task")
	}

	sleep(ctx, durationParam(t.params, "delay", 50*time.Millisecond))

	if simulatedFailure(t.params, 0.05) {
		return failureResult(t.name, started, "data processing failed", "processing algorithm error")
	}

	records, _ := input["records"].([]interface{})
	processed := make([]interface{}, 0, len(records))
	var totalValue float64

	for _, raw := range records {
		record, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		value := floatParam(record, "value", 0)
		totalValue += value

		category := "low"
		if value > 150 {
			category = "high"
		}

		out := make(map[string]interface{}, len(record)+3)
		for k, v := range record {
			out[k] = v
		}
		out["processed"] = true
		out["doubled_value"] = value * 2
		out["category"] = category

		processed = append(processed, out)
	}

	payload := map[string]interface{}{
		"processed_records": processed,
		"summary": map[string]interface{}{
			"total_records":     len(processed),
			"total_value":       totalValue,
			"processing_method": stringParam(t.params, "method", "standard"),
		},
	}

	return successResult(t.name, started, "data processed successfully", payload)
}
