package storage

import (
	"context"
	"errors"
	"fmt"

	"flashtrade-sim/internal/config"
)

// ErrNotFound is returned by Get when a slot has never been written.
var ErrNotFound = errors.New("storage: key not found")

// KV is the durable key-value boundary. Values are opaque text.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(cfg config.Storage) (KV, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := NewDatabase(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db), nil
	case "redis":
		return NewRedisStore(cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
