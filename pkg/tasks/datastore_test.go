package tasks

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDataStore(t *testing.T) {
	store := NewMemoryDataStore()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	value := map[string]interface{}{"count": 3}
	require.NoError(t, store.Put(ctx, "run-1", value))

	got, found, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, value, got)
}

func TestRedisDataStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisDataStore(client, "flowman:data:")
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	value := map[string]interface{}{"count": 3.0, "source": "orders_api"}
	require.NoError(t, store.Put(ctx, "run-1", value))

	got, found, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, value, got)

	// Values live under the configured prefix
	assert.True(t, mr.Exists("flowman:data:run-1"))
}
