package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowman-io/flowman/pkg/flow"
	"github.com/flowman-io/flowman/pkg/logging"
)

// deterministic knocks the simulated delay and failure out of a task
func deterministic(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		params = map[string]interface{}{}
	}
	params["delay"] = "0s"
	params["failure_rate"] = 0
	return params
}

func TestFetchDataTask(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		task, err := NewFetchDataTask("fetch", deterministic(map[string]interface{}{
			"data_source": "orders_api",
		}))
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskSuccess, result.Status)
		assert.Equal(t, "fetch", result.TaskName)
		assert.Equal(t, 3, result.Payload["total_count"])
		assert.Equal(t, "orders_api", result.Payload["source"])

		records, ok := result.Payload["records"].([]interface{})
		require.True(t, ok)
		assert.Len(t, records, 3)
	})

	t.Run("default source", func(t *testing.T) {
		task, err := NewFetchDataTask("fetch", deterministic(nil))
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, "default_api", result.Payload["source"])
	})

	t.Run("forced failure", func(t *testing.T) {
		task, err := NewFetchDataTask("fetch", map[string]interface{}{
			"delay":        "0s",
			"failure_rate": 1,
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskFailure, result.Status)
		assert.Equal(t, "connection timeout", result.Error)
		assert.Nil(t, result.Payload)
	})
}

func TestProcessDataTask(t *testing.T) {
	fetchPayload := map[string]interface{}{
		"records": []interface{}{
			map[string]interface{}{"id": 1, "name": "Item 1", "value": 100.0},
			map[string]interface{}{"id": 2, "name": "Item 2", "value": 200.0},
		},
		"total_count": 2,
	}

	t.Run("transforms upstream records", func(t *testing.T) {
		task, err := NewProcessDataTask("process", deterministic(nil))
		require.NoError(t, err)

		result := task.Execute(context.Background(), map[string]interface{}{
			"fetch": fetchPayload,
		})
		require.Equal(t, flow.TaskSuccess, result.Status)

		processed, ok := result.Payload["processed_records"].([]interface{})
		require.True(t, ok)
		require.Len(t, processed, 2)

		first := processed[0].(map[string]interface{})
		assert.Equal(t, true, first["processed"])
		assert.Equal(t, 200.0, first["doubled_value"])
		assert.Equal(t, "low", first["category"])

		second := processed[1].(map[string]interface{})
		assert.Equal(t, "high", second["category"])

		summary := result.Payload["summary"].(map[string]interface{})
		assert.Equal(t, 2, summary["total_records"])
		assert.Equal(t, 300.0, summary["total_value"])
	})

	t.Run("explicit source task", func(t *testing.T) {
		task, err := NewProcessDataTask("process", deterministic(map[string]interface{}{
			"source_task": "my_ingest",
		}))
		require.NoError(t, err)

		result := task.Execute(context.Background(), map[string]interface{}{
			"my_ingest": fetchPayload,
		})
		assert.Equal(t, flow.TaskSuccess, result.Status)
	})

	t.Run("missing upstream data", func(t *testing.T) {
		task, err := NewProcessDataTask("process", deterministic(nil))
		require.NoError(t, err)

		result := task.Execute(context.Background(), map[string]interface{}{})
		assert.Equal(t, flow.TaskFailure, result.Status)
		assert.Contains(t, result.Error, "missing input data")
	})
}

func TestStoreDataTask(t *testing.T) {
	processPayload := map[string]interface{}{
		"processed_records": []interface{}{
			map[string]interface{}{"id": 1},
			map[string]interface{}{"id": 2},
		},
	}

	t.Run("stores upstream payload", func(t *testing.T) {
		store := NewMemoryDataStore()
		factory := NewStoreDataFactory(store)
		task, err := factory("store", deterministic(map[string]interface{}{"key": "run-1"}))
		require.NoError(t, err)

		result := task.Execute(context.Background(), map[string]interface{}{
			"process": processPayload,
		})
		require.Equal(t, flow.TaskSuccess, result.Status)
		assert.Equal(t, 2, result.Payload["stored_records"])
		assert.Equal(t, "run-1", result.Payload["storage_key"])

		stored, found, err := store.Get(context.Background(), "run-1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, processPayload, stored)
	})

	t.Run("key defaults to task name", func(t *testing.T) {
		store := NewMemoryDataStore()
		task, err := NewStoreDataFactory(store)("store", deterministic(nil))
		require.NoError(t, err)

		result := task.Execute(context.Background(), map[string]interface{}{
			"process": processPayload,
		})
		require.Equal(t, flow.TaskSuccess, result.Status)

		_, found, err := store.Get(context.Background(), "store")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("missing upstream data", func(t *testing.T) {
		task, err := NewStoreDataFactory(NewMemoryDataStore())("store", deterministic(nil))
		require.NoError(t, err)

		result := task.Execute(context.Background(), map[string]interface{}{})
		assert.Equal(t, flow.TaskFailure, result.Status)
	})

	t.Run("nil store rejected at factory time", func(t *testing.T) {
		_, err := NewStoreDataFactory(nil)("store", nil)
		assert.Error(t, err)
	})
}

func TestPrintTask(t *testing.T) {
	factory := NewPrintFactory(logging.NewTestLogger())

	t.Run("custom message", func(t *testing.T) {
		task, err := factory("announce", map[string]interface{}{"message": "pipeline started"})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskSuccess, result.Status)
		assert.Equal(t, "pipeline started", result.Payload["message_printed"])
	})

	t.Run("default message", func(t *testing.T) {
		task, err := factory("announce", nil)
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, "default print task message", result.Payload["message_printed"])
	})
}

func TestWaitTask(t *testing.T) {
	t.Run("duration", func(t *testing.T) {
		task, err := NewWaitTask("pause", map[string]interface{}{
			"type":     "duration",
			"duration": "1ms",
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskSuccess, result.Status)
		assert.Equal(t, "1ms", result.Payload["waited_for"])
	})

	t.Run("until time in the past returns immediately", func(t *testing.T) {
		task, err := NewWaitTask("pause", map[string]interface{}{
			"type": "until_time",
			"time": "2020-01-01T00:00:00Z",
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskSuccess, result.Status)
	})

	t.Run("invalid time format", func(t *testing.T) {
		task, err := NewWaitTask("pause", map[string]interface{}{
			"type": "until_time",
			"time": "tomorrow",
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskFailure, result.Status)
	})

	t.Run("unknown wait type", func(t *testing.T) {
		task, err := NewWaitTask("pause", map[string]interface{}{"type": "eons"})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskFailure, result.Status)
		assert.Contains(t, result.Error, "unknown wait type")
	})
}

func TestHTTPRequestTask(t *testing.T) {
	t.Run("url is required", func(t *testing.T) {
		_, err := NewHTTPRequestTask("call", nil)
		assert.Error(t, err)
	})

	t.Run("json response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status": "up"}`))
		}))
		defer server.Close()

		task, err := NewHTTPRequestTask("call", map[string]interface{}{"url": server.URL})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		require.Equal(t, flow.TaskSuccess, result.Status)
		assert.Equal(t, 200, result.Payload["status_code"])

		body := result.Payload["body"].(map[string]interface{})
		assert.Equal(t, "up", body["status"])
	})

	t.Run("post with body and headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "token-123", r.Header.Get("X-Api-Key"))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		task, err := NewHTTPRequestTask("call", map[string]interface{}{
			"url":     server.URL,
			"method":  "post",
			"body":    map[string]interface{}{"name": "run"},
			"headers": map[string]interface{}{"X-Api-Key": "token-123"},
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskSuccess, result.Status)
		assert.Equal(t, 201, result.Payload["status_code"])
	})

	t.Run("error status is a business failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		task, err := NewHTTPRequestTask("call", map[string]interface{}{"url": server.URL})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskFailure, result.Status)
		assert.Equal(t, 503, result.Payload["status_code"])
	})

	t.Run("unreachable host", func(t *testing.T) {
		task, err := NewHTTPRequestTask("call", map[string]interface{}{
			"url":     "http://127.0.0.1:1",
			"timeout": "250ms",
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskFailure, result.Status)
	})
}

func TestScriptTask(t *testing.T) {
	factory := NewScriptFactory(logging.NewTestLogger())

	t.Run("script is required", func(t *testing.T) {
		_, err := factory("calc", nil)
		assert.Error(t, err)
	})

	t.Run("returned object becomes the payload", func(t *testing.T) {
		task, err := factory("calc", map[string]interface{}{
			"script": `return {total: context.fetch.total_count * 10};`,
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), map[string]interface{}{
			"fetch": map[string]interface{}{"total_count": 3},
		})
		require.Equal(t, flow.TaskSuccess, result.Status)
		assert.Equal(t, int64(30), result.Payload["total"])
	})

	t.Run("scalar return is wrapped", func(t *testing.T) {
		task, err := factory("calc", map[string]interface{}{
			"script": `return params.factor * 2;`,
			"factor": 21,
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		require.Equal(t, flow.TaskSuccess, result.Status)
		assert.Equal(t, int64(42), result.Payload["result"])
	})

	t.Run("failed flag reports a business failure", func(t *testing.T) {
		task, err := factory("calc", map[string]interface{}{
			"script": `return {failed: true, message: "quota exceeded"};`,
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskFailure, result.Status)
		assert.Equal(t, "quota exceeded", result.Message)
	})

	t.Run("thrown error fails the task", func(t *testing.T) {
		task, err := factory("calc", map[string]interface{}{
			"script": `throw new Error("bad input");`,
		})
		require.NoError(t, err)

		result := task.Execute(context.Background(), nil)
		assert.Equal(t, flow.TaskFailure, result.Status)
		assert.Contains(t, result.Error, "bad input")
	})
}

func TestRegisterBuiltins(t *testing.T) {
	registry := newRegistry(t)

	types := registry.Types()
	for _, want := range []string{"fetch_data", "process_data", "store_data", "print", "wait", "http_request", "script"} {
		assert.Contains(t, types, want)
	}
}
