package storage

import (
	"fmt"

	"github.com/flowman-io/flowman/pkg/config"
)

// ProviderType represents the type of storage provider
type ProviderType string

const (
	// MemoryProviderType is an in-memory storage provider
	MemoryProviderType ProviderType = "memory"

	// RedisProviderType is a Redis storage provider
	RedisProviderType ProviderType = "redis"

	// PostgreSQLProviderType is a PostgreSQL storage provider
	PostgreSQLProviderType ProviderType = "postgres"

	// DynamoDBProviderType is a DynamoDB storage provider
	DynamoDBProviderType ProviderType = "dynamodb"
)

// NewProvider creates a storage provider from the application configuration
func NewProvider(cfg config.StorageConfig) (Provider, error) {
	switch ProviderType(cfg.Type) {
	case MemoryProviderType, "":
		return NewMemoryProvider(), nil

	case RedisProviderType:
		return NewRedisProvider(RedisProviderConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}), nil

	case PostgreSQLProviderType:
		return NewPostgreSQLProvider(PostgreSQLProviderConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		})

	case DynamoDBProviderType:
		return NewDynamoDBProvider(DynamoDBProviderConfig{
			Region:      cfg.DynamoDB.Region,
			TablePrefix: cfg.DynamoDB.TablePrefix,
			Endpoint:    cfg.DynamoDB.Endpoint,
		})

	default:
		return nil, fmt.Errorf("unknown storage provider type: %s", cfg.Type)
	}
}
