package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowman-io/flowman/pkg/config"
	"github.com/flowman-io/flowman/pkg/flow"
)

func sampleDefinition(id string) flow.Definition {
	return flow.Definition{
		ID:        id,
		Name:      "Sample Flow",
		StartTask: "fetch",
		Tasks: []flow.TaskSpec{
			{Name: "fetch", TaskType: "fetch_data"},
		},
	}
}

func sampleState(id string) flow.ExecutionState {
	// Fixed times keep serialization round-trips exact
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return flow.ExecutionState{
		ExecutionID: id,
		FlowID:      "sample-flow",
		Status:      flow.ExecutionCompleted,
		Results: []flow.TaskResult{
			{TaskName: "fetch", Status: flow.TaskSuccess, Message: "ok", StartedAt: start, EndedAt: start.Add(time.Second)},
		},
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
	}
}

// runFlowStoreTests exercises the FlowStore contract against any backend
func runFlowStoreTests(t *testing.T, store FlowStore) {
	t.Run("get missing flow", func(t *testing.T) {
		_, err := store.GetFlow("nope")
		assert.True(t, errors.Is(err, flow.ErrFlowNotFound))
	})

	t.Run("save and get", func(t *testing.T) {
		def := sampleDefinition("flow-a")
		require.NoError(t, store.SaveFlow(def))

		got, err := store.GetFlow("flow-a")
		require.NoError(t, err)
		assert.Equal(t, def, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		def := sampleDefinition("flow-a")
		def.Name = "Renamed"
		require.NoError(t, store.SaveFlow(def))

		got, err := store.GetFlow("flow-a")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, store.SaveFlow(sampleDefinition("flow-b")))

		defs, err := store.ListFlows()
		require.NoError(t, err)
		assert.Len(t, defs, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteFlow("flow-b"))

		_, err := store.GetFlow("flow-b")
		assert.True(t, errors.Is(err, flow.ErrFlowNotFound))

		err = store.DeleteFlow("flow-b")
		assert.True(t, errors.Is(err, flow.ErrFlowNotFound))
	})
}

// runExecutionStoreTests exercises the ExecutionStore contract against
// any backend
func runExecutionStoreTests(t *testing.T, store ExecutionStore) {
	t.Run("get missing execution", func(t *testing.T) {
		_, err := store.GetExecution("nope")
		assert.True(t, errors.Is(err, flow.ErrExecutionNotFound))
	})

	t.Run("save and get", func(t *testing.T) {
		state := sampleState("exec-a")
		require.NoError(t, store.SaveExecution(state))

		got, err := store.GetExecution("exec-a")
		require.NoError(t, err)
		assert.Equal(t, state.Status, got.Status)
		assert.Equal(t, state.FlowID, got.FlowID)
		require.Len(t, got.Results, 1)
		assert.Equal(t, "fetch", got.Results[0].TaskName)
		assert.True(t, state.StartTime.Equal(got.StartTime))
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, store.SaveExecution(sampleState("exec-b")))

		states, err := store.ListExecutions()
		require.NoError(t, err)
		assert.Len(t, states, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteExecution("exec-b"))

		_, err := store.GetExecution("exec-b")
		assert.True(t, errors.Is(err, flow.ErrExecutionNotFound))

		err = store.DeleteExecution("exec-b")
		assert.True(t, errors.Is(err, flow.ErrExecutionNotFound))
	})
}

func TestMemoryProvider(t *testing.T) {
	provider := NewMemoryProvider()
	require.NoError(t, provider.Initialize())
	defer provider.Close()

	t.Run("flows", func(t *testing.T) { runFlowStoreTests(t, provider.GetFlowStore()) })
	t.Run("executions", func(t *testing.T) { runExecutionStoreTests(t, provider.GetExecutionStore()) })
}

func TestRedisProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	provider := NewRedisProviderWithClient(client, "flowman:")
	require.NoError(t, provider.Initialize())
	defer provider.Close()

	t.Run("flows", func(t *testing.T) { runFlowStoreTests(t, provider.GetFlowStore()) })
	t.Run("executions", func(t *testing.T) { runExecutionStoreTests(t, provider.GetExecutionStore()) })
}

func TestNewProviderFromConfig(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		provider, err := NewProvider(config.StorageConfig{Type: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &MemoryProvider{}, provider)
	})

	t.Run("empty type defaults to memory", func(t *testing.T) {
		provider, err := NewProvider(config.StorageConfig{})
		require.NoError(t, err)
		assert.IsType(t, &MemoryProvider{}, provider)
	})

	t.Run("redis", func(t *testing.T) {
		provider, err := NewProvider(config.StorageConfig{
			Type:  "redis",
			Redis: config.RedisConfig{Address: "localhost:6379"},
		})
		require.NoError(t, err)
		assert.IsType(t, &RedisProvider{}, provider)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewProvider(config.StorageConfig{Type: "tape"})
		assert.Error(t, err)
	})
}
