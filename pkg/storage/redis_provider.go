package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/flowman-io/flowman/pkg/flow"
)

// RedisProvider implements the Provider interface using Redis
type RedisProvider struct {
	client         *redis.Client
	flowStore      *RedisFlowStore
	executionStore *RedisExecutionStore
}

// RedisProviderConfig contains configuration for the Redis provider
type RedisProviderConfig struct {
	// Address of the Redis server (host:port)
	Address string

	// Password for the Redis server
	Password string

	// DB is the Redis database index
	DB int

	// KeyPrefix is prepended to all keys
	KeyPrefix string
}

// NewRedisProvider creates a new Redis storage provider
func NewRedisProvider(config RedisProviderConfig) *RedisProvider {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "flowman:"
	}

	return &RedisProvider{
		client:         client,
		flowStore:      &RedisFlowStore{client: client, keyPrefix: prefix + "flow:"},
		executionStore: &RedisExecutionStore{client: client, keyPrefix: prefix + "execution:"},
	}
}

// NewRedisProviderWithClient creates a provider around an existing client.
// Used by tests running against miniredis.
func NewRedisProviderWithClient(client *redis.Client, keyPrefix string) *RedisProvider {
	return &RedisProvider{
		client:         client,
		flowStore:      &RedisFlowStore{client: client, keyPrefix: keyPrefix + "flow:"},
		executionStore: &RedisExecutionStore{client: client, keyPrefix: keyPrefix + "execution:"},
	}
}

// Initialize sets up the storage backend
func (p *RedisProvider) Initialize() error {
	if err := p.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close cleans up resources
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// GetFlowStore returns a store for flow definitions
func (p *RedisProvider) GetFlowStore() FlowStore {
	return p.flowStore
}

// GetExecutionStore returns a store for execution data
func (p *RedisProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// RedisFlowStore implements the FlowStore interface using Redis
type RedisFlowStore struct {
	client    *redis.Client
	keyPrefix string
}

// SaveFlow persists a flow definition, keyed by its ID
func (s *RedisFlowStore) SaveFlow(def flow.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal flow definition: %w", err)
	}
	if err := s.client.Set(context.Background(), s.keyPrefix+def.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save flow %s: %w", def.ID, err)
	}
	return nil
}

// GetFlow retrieves a flow definition
func (s *RedisFlowStore) GetFlow(flowID string) (flow.Definition, error) {
	data, err := s.client.Get(context.Background(), s.keyPrefix+flowID).Result()
	if err == redis.Nil {
		return flow.Definition{}, fmt.Errorf("%w: %s", flow.ErrFlowNotFound, flowID)
	}
	if err != nil {
		return flow.Definition{}, fmt.Errorf("failed to get flow %s: %w", flowID, err)
	}

	var def flow.Definition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return flow.Definition{}, fmt.Errorf("failed to unmarshal flow %s: %w", flowID, err)
	}
	return def, nil
}

// ListFlows returns all stored flow definitions
func (s *RedisFlowStore) ListFlows() ([]flow.Definition, error) {
	ctx := context.Background()
	keys, err := s.client.Keys(ctx, s.keyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	defs := make([]flow.Definition, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read flow key %s: %w", key, err)
		}

		var def flow.Definition
		if err := json.Unmarshal([]byte(data), &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flow key %s: %w", key, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// DeleteFlow removes a flow definition
func (s *RedisFlowStore) DeleteFlow(flowID string) error {
	removed, err := s.client.Del(context.Background(), s.keyPrefix+flowID).Result()
	if err != nil {
		return fmt.Errorf("failed to delete flow %s: %w", flowID, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", flow.ErrFlowNotFound, flowID)
	}
	return nil
}

// RedisExecutionStore implements the ExecutionStore interface using Redis
type RedisExecutionStore struct {
	client    *redis.Client
	keyPrefix string
}

// SaveExecution persists an execution state
func (s *RedisExecutionStore) SaveExecution(state flow.ExecutionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal execution state: %w", err)
	}
	if err := s.client.Set(context.Background(), s.keyPrefix+state.ExecutionID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save execution %s: %w", state.ExecutionID, err)
	}
	return nil
}

// GetExecution retrieves an execution state
func (s *RedisExecutionStore) GetExecution(executionID string) (flow.ExecutionState, error) {
	data, err := s.client.Get(context.Background(), s.keyPrefix+executionID).Result()
	if err == redis.Nil {
		return flow.ExecutionState{}, fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	if err != nil {
		return flow.ExecutionState{}, fmt.Errorf("failed to get execution %s: %w", executionID, err)
	}

	var state flow.ExecutionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return flow.ExecutionState{}, fmt.Errorf("failed to unmarshal execution %s: %w", executionID, err)
	}
	return state, nil
}

// ListExecutions returns all stored execution states
func (s *RedisExecutionStore) ListExecutions() ([]flow.ExecutionState, error) {
	ctx := context.Background()
	keys, err := s.client.Keys(ctx, s.keyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	states := make([]flow.ExecutionState, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read execution key %s: %w", key, err)
		}

		var state flow.ExecutionState
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution key %s: %w", key, err)
		}
		states = append(states, state)
	}
	return states, nil
}

// DeleteExecution removes an execution state
func (s *RedisExecutionStore) DeleteExecution(executionID string) error {
	removed, err := s.client.Del(context.Background(), s.keyPrefix+executionID).Result()
	if err != nil {
		return fmt.Errorf("failed to delete execution %s: %w", executionID, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	return nil
}
