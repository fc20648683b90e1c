package store

import (
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a key is not in the store.
var ErrNotFound = errors.New("key not found")

// ErrEmptyKey is returned when setting a value without a key.
var ErrEmptyKey = errors.New("key must not be empty")

// Store is the storage interface used by kv.Service. It should be goroutine-safe.
type Store interface {
	// Get returns the JSON value stored under key, or ErrNotFound.
	Get(key string) (json.RawMessage, error)
	// Set stores a JSON value under key, replacing any previous value.
	Set(key string, value json.RawMessage) error
	// Delete removes key. Deleting a missing key returns ErrNotFound.
	Delete(key string) error
	// Keys returns the sorted keys that start with prefix.
	Keys(prefix string) ([]string, error)

	Close() error
}
