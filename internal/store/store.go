// Package store provides a shared content-addressed object byte store
// consulted before the remote object endpoint. Object ids are content
// hashes, so entries are immutable and never invalidated; backends only
// differ in where the bytes live and how long they are kept.
package store

import (
	"context"
	"time"
)

// Store holds raw object payloads keyed by object id.
type Store interface {
	// Get retrieves a cached payload. A missing id returns a MissError.
	Get(ctx context.Context, objectID string) ([]byte, error)

	// Put stores a payload. Because ids are content hashes, storing an
	// id that already exists is a no-op, not a conflict.
	Put(ctx context.Context, objectID string, payload []byte) error

	// Close releases backend resources.
	Close() error
}

// Config holds common configuration for store backends.
type Config struct {
	// Prefix is prepended to all keys in shared backends.
	Prefix string
	// TTL bounds how long a backend keeps a payload; zero keeps it
	// indefinitely. Entries never need invalidation, only eviction.
	TTL time.Duration
}

// DefaultConfig returns a default store configuration.
func DefaultConfig() Config {
	return Config{
		Prefix: "speckle:objects:",
	}
}

// MissError is returned when an object id is not in the store.
type MissError struct {
	ObjectID string
}

func (e MissError) Error() string {
	return "object not cached: " + e.ObjectID
}

// IsMiss checks if an error is a store miss.
func IsMiss(err error) bool {
	_, ok := err.(MissError)
	return ok
}
