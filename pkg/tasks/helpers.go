// Package tasks contains the built-in task implementations.
package tasks

import (
	"math/rand"
	"strings"
	"time"

	"github.com/flowman-io/flowman/pkg/flow"
)

// stringParam returns a string parameter or the given default
func stringParam(params map[string]interface{}, key string, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

// floatParam returns a numeric parameter or the given default. YAML and
// JSON decoders deliver numbers as float64 or int depending on input.
func floatParam(params map[string]interface{}, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// simulatedFailure rolls against the failure_rate parameter. A rate of 0
// never fails; a rate of 1 always fails.
func simulatedFailure(params map[string]interface{}, defaultRate float64) bool {
	rate := floatParam(params, "failure_rate", defaultRate)
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}
	return rand.Float64() < rate
}

// successResult builds a success TaskResult with recorded timing
func successResult(name string, started time.Time, message string, payload map[string]interface{}) flow.TaskResult {
	return flow.TaskResult{
		TaskName:  name,
		Status:    flow.TaskSuccess,
		Message:   message,
		Payload:   payload,
		StartedAt: started,
		EndedAt:   time.Now().UTC(),
	}
}

// failureResult builds a failure TaskResult with recorded timing
func failureResult(name string, started time.Time, message string, errDetail string) flow.TaskResult {
	return flow.TaskResult{
		TaskName:  name,
		Status:    flow.TaskFailure,
		Message:   message,
		Error:     errDetail,
		StartedAt: started,
		EndedAt:   time.Now().UTC(),
	}
}

// upstreamPayload finds the payload of a predecessor task in the shared
// context. It prefers an explicit "source_task" parameter, then falls
// back to the first context entry whose task name contains one of the
// hints. Hints cover both type-derived names ("fetch") and positional
// ones ("task1") so generically-named pipeline flows still connect.
func upstreamPayload(params map[string]interface{}, execCtx map[string]interface{}, hints ...string) map[string]interface{} {
	if source := stringParam(params, "source_task", ""); source != "" {
		if payload, ok := execCtx[source].(map[string]interface{}); ok {
			return payload
		}
		return nil
	}

	for taskName, value := range execCtx {
		lower := strings.ToLower(taskName)
		for _, hint := range hints {
			if !strings.Contains(lower, hint) {
				continue
			}
			if payload, ok := value.(map[string]interface{}); ok {
				return payload
			}
		}
	}
	return nil
}
