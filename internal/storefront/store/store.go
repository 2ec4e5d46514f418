package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: not found")

// AccessTokenKey is the only key the session persists. User identity is never
// stored; it is always re-derived from the API.
const AccessTokenKey = "access_token"

// Store is the durable key-value storage that survives process restarts, the
// client-side equivalent of browser local storage. Concrete drivers (memory,
// file, sqlite, redis) implement it.
type Store interface {
	// Get returns the value for key, or ErrNotFound when it is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Watcher is implemented by drivers that can observe changes made to a key by
// another process (another CLI instance, a user deleting a file, ...).
type Watcher interface {
	// Watch calls fn whenever key is changed or removed outside this Store.
	// It returns once the watch is established and stops when ctx is done.
	Watch(ctx context.Context, key string, fn func()) error
}
