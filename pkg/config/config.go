// Package config provides configuration handling for flowman.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Scheduler configuration
	Scheduler SchedulerConfig `json:"scheduler"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Host to bind to
	Host string `json:"host"`

	// Port to listen on
	Port int `json:"port"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	// Type of storage to use
	Type string `json:"type"` // "memory", "redis", "postgres", "dynamodb"

	// Redis configuration
	Redis RedisConfig `json:"redis"`

	// PostgreSQL configuration
	Postgres PostgresConfig `json:"postgres"`

	// DynamoDB configuration
	DynamoDB DynamoDBConfig `json:"dynamodb"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	// Address of the Redis server (host:port)
	Address string `json:"address"`

	// Password for the Redis server
	Password string `json:"password,omitempty"`

	// DB is the Redis database index
	DB int `json:"db"`

	// KeyPrefix is prepended to all keys
	KeyPrefix string `json:"key_prefix"`
}

// PostgresConfig contains PostgreSQL settings
type PostgresConfig struct {
	// Host is the database host
	Host string `json:"host"`

	// Port is the database port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// User is the database user
	User string `json:"user"`

	// Password is the database password
	Password string `json:"password"`

	// SSLMode is the SSL mode
	SSLMode string `json:"ssl_mode"`
}

// DynamoDBConfig contains DynamoDB settings
type DynamoDBConfig struct {
	// Region is the AWS region
	Region string `json:"region"`

	// Endpoint is the DynamoDB endpoint (for local development)
	Endpoint string `json:"endpoint,omitempty"`

	// TablePrefix is the prefix for all tables
	TablePrefix string `json:"table_prefix"`
}

// SchedulerConfig contains settings for scheduled flow triggers
type SchedulerConfig struct {
	// Enabled indicates whether the scheduler starts with the server
	Enabled bool `json:"enabled"`

	// Schedules maps flow IDs to cron expressions
	Schedules map[string]string `json:"schedules,omitempty"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	// Level is the logging level
	Level string `json:"level"` // "debug", "info", "warn", "error"

	// Format is the log format
	Format string `json:"format"` // "json", "text"

	// Output is the log output
	Output string `json:"output"` // "stdout", "stderr", "file"

	// FilePath is the path to the log file
	FilePath string `json:"file_path,omitempty"`
}

// LoadConfig loads the configuration from a file and applies environment
// overrides
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the JSON
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)
	return config, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Storage: StorageConfig{
			Type: "memory",
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "flowman:",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "flowman",
				User:     "flowman",
				SSLMode:  "disable",
			},
			DynamoDB: DynamoDBConfig{
				Region:      "us-west-2",
				TablePrefix: "flowman_",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// FromEnv returns the default configuration with environment overrides
// applied. Used when no config file is given.
func FromEnv() *Config {
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides overrides configuration values from FLOWMAN_* variables
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLOWMAN_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FLOWMAN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FLOWMAN_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("FLOWMAN_REDIS_ADDRESS"); v != "" {
		cfg.Storage.Redis.Address = v
	}
	if v := os.Getenv("FLOWMAN_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("FLOWMAN_POSTGRES_HOST"); v != "" {
		cfg.Storage.Postgres.Host = v
	}
	if v := os.Getenv("FLOWMAN_POSTGRES_PASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}
	if v := os.Getenv("FLOWMAN_DYNAMODB_ENDPOINT"); v != "" {
		cfg.Storage.DynamoDB.Endpoint = v
	}
	if v := os.Getenv("FLOWMAN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	// Create the directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal the JSON
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
