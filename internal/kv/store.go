// Package kv provides the key-value persistence used for profiles, credentials
// and counters.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrConflict is returned when an atomic update kept losing to concurrent
	// writers and gave up.
	ErrConflict = errors.New("concurrent modification")
)

// DefaultUpdateRetries bounds the optimistic retry loop of Update.
const DefaultUpdateRetries = 10

// UpdateFunc computes the new value of a key from its current value. exists is
// false when the key is missing. Returning a nil slice leaves the key untouched;
// returning an error aborts the update and is passed through to the caller.
type UpdateFunc func(current []byte, exists bool) ([]byte, error)

// Store is a string-keyed byte store.
type Store interface {
	// Get returns the value of key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Keys lists every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Incr atomically increments the integer stored at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Update applies fn to the value of key as one atomic compare-and-swap.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the underlying resources.
	Close() error
}
