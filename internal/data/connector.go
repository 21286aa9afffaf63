// Package data provides key-value backends for the cache and profile stores.
package data

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired
var ErrNotFound = errors.New("key not found")

// Connector is a minimal key-value store. Every write is a full-value overwrite.
type Connector interface {
	// Get returns ErrNotFound on a miss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value; ttl of zero means the entry never expires
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// MGet reads many keys in one round-trip; missing keys yield nil entries
	MGet(ctx context.Context, keys []string) ([][]byte, error)

	// Ping checks backend reachability
	Ping(ctx context.Context) error

	Close() error
}
