package store

import (
	"context"
	"errors"
	"fmt"
)

// Store is a persistent key-value slot. Values are opaque strings; the
// task collection is kept under a single key.
type Store interface {
	// Get returns the value under key. ok is false when the key has never
	// been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set replaces the value under key. A failed Set leaves the previous
	// value readable.
	Set(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// ErrUnknownDriver is returned by Open for an unrecognized driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Options selects and configures a backend.
type Options struct {
	Driver      string
	SQLitePath  string
	Dir         string
	RedisAddr   string
	RedisPrefix string
}

// Open constructs the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return NewSQLiteStore(opts.SQLitePath)
	case DriverFile:
		return NewFileStore(opts.Dir)
	case DriverRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPrefix)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
