package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
)

// StoreDataTask persists the payload of an upstream processing task into
// a DataStore. The destination key defaults to the task name.
type StoreDataTask struct {
	name   string
	params map[string]interface{}
	store  DataStore
}

// NewStoreDataFactory returns the factory for the "store_data" task type,
// bound to the given data store
func NewStoreDataFactory(store DataStore) engine.TaskFactory {
	return func(name string, params map[string]interface{}) (engine.Task, error) {
		if store == nil {
			return nil, fmt.Errorf("store_data task requires a data store")
		}
		return &StoreDataTask{name: name, params: params, store: store}, nil
	}
}

// Execute runs the task against the shared execution context
func (t *StoreDataTask) Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult {
	started := time.Now().UTC()

	input := upstreamPayload(t.params, execCtx, "process", "task2")
	if input == nil {
		return failureResult(t.name, started, "no processed data available to store", "missing processed data from previous task")
	}

	sleep(ctx, durationParam(t.params, "delay", 20*time.Millisecond))

	if simulatedFailure(t.params, 0.02) {
		return failureResult(t.name, started, "failed to store data", "storage backend error")
	}

	key := stringParam(t.params, "key", t.name)
	if err := t.store.Put(ctx, key, input); err != nil {
		return failureResult(t.name, started, "failed to store data", err.Error())
	}

	stored := 0
	if records, ok := input["processed_records"].([]interface{}); ok {
		stored = len(records)
	}

	payload := map[string]interface{}{
		"stored_records": stored,
		"storage_key":    key,
		"storage_format": stringParam(t.params, "format", "json"),
		"stored_at":      time.Now().UTC().Format(time.RFC3339),
	}

	return successResult(t.name, started, "data stored successfully", payload)
}
