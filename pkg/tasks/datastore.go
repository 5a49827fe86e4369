package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// DataStore is the destination used by the store_data task
type DataStore interface {
	// Put stores a value under the given key
	Put(ctx context.Context, key string, value map[string]interface{}) error

	// Get retrieves a previously stored value
	Get(ctx context.Context, key string) (map[string]interface{}, bool, error)
}

// MemoryDataStore keeps stored values in process memory
type MemoryDataStore struct {
	values map[string]map[string]interface{}
	mu     sync.RWMutex
}

// NewMemoryDataStore creates an empty in-memory data store
func NewMemoryDataStore() *MemoryDataStore {
	return &MemoryDataStore{values: make(map[string]map[string]interface{})}
}

// Put stores a value under the given key
func (s *MemoryDataStore) Put(ctx context.Context, key string, value map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Get retrieves a previously stored value
func (s *MemoryDataStore) Get(ctx context.Context, key string) (map[string]interface{}, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

// RedisDataStore stores values as JSON blobs in Redis
type RedisDataStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisDataStore creates a Redis-backed data store
func NewRedisDataStore(client *redis.Client, keyPrefix string) *RedisDataStore {
	return &RedisDataStore{client: client, keyPrefix: keyPrefix}
}

// Put stores a value under the given key
func (s *RedisDataStore) Put(ctx context.Context, key string, value map[string]interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store key %q: %w", key, err)
	}
	return nil
}

// Get retrieves a previously stored value
func (s *RedisDataStore) Get(ctx context.Context, key string) (map[string]interface{}, bool, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	var value map[string]interface{}
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal value for key %q: %w", key, err)
	}
	return value, true, nil
}
