package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"onboarding_flow/src/model"
)

// ErrNotFound is returned by Get when no value is stored under the key
var ErrNotFound = errors.New("storage: key not found")

// Storage is the key-value persistence surface drafts are written through.
// Values are opaque serialized records.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Open builds the storage backend selected in config
func Open(ctx context.Context, config model.StorageConfig) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(config.Backend)) {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendFile:
		return NewFileStorage(config.FileDir)
	case BackendRedis:
		return NewRedisStorage(ctx, config)
	case BackendSQLite, "":
		return NewSQLiteStorage(ctx, config.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", config.Backend)
	}
}
