package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "flowman:", cfg.Storage.Redis.KeyPrefix)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"server": {"port": 9000},
		"storage": {"type": "redis", "redis": {"address": "redis.internal:6379"}},
		"scheduler": {"enabled": true, "schedules": {"data-pipeline": "0 * * * *"}}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// File values override defaults; untouched defaults survive
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "redis.internal:6379", cfg.Storage.Redis.Address)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.Schedules["data-pipeline"])
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{oops"), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLOWMAN_HOST", "0.0.0.0")
	t.Setenv("FLOWMAN_PORT", "9090")
	t.Setenv("FLOWMAN_STORAGE_TYPE", "redis")
	t.Setenv("FLOWMAN_REDIS_ADDRESS", "redis.internal:6379")
	t.Setenv("FLOWMAN_LOG_LEVEL", "debug")

	cfg := FromEnv()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "redis.internal:6379", cfg.Storage.Redis.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrideInvalidPort(t *testing.T) {
	t.Setenv("FLOWMAN_PORT", "not-a-port")

	cfg := FromEnv()
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Server.Port = 9999
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
