package driver

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound the requested key does not exist or has expired
var ErrKeyNotFound = errors.New("key not found")

// KeyValueDB define a key-value storage interface
type KeyValueDB interface {
	SetEX(ctx context.Context, key string, value string, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
