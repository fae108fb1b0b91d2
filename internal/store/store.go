// Package store persists small JSON documents by key.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

var (
	ErrClosed        = errors.New("store closed")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store reads and writes JSON-encoded values.
type Store interface {
	// Read decodes the value at key into dest. It reports false when key
	// has never been written.
	Read(ctx context.Context, key string, dest any) (bool, error)
	Write(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open opens the store for driver at path.
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(ctx, path)
	case DriverBolt:
		return OpenBolt(path)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
