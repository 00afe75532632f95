package storage

import (
	"errors"
)

// ErrKeyNotFound is returned when a key doesn't exist in the datastore.
//
// This error is used consistently across all Datastore implementations to
// indicate that a requested key is absent. Callers should check for it with
// errors.Is to distinguish a missing key from other storage failures.
var ErrKeyNotFound = errors.New("storage: key not found")

// Datastore is the external collaborator the Engine is built on: a flat,
// byte-keyed key/value store with no knowledge of CIDs, blocks, or aliases.
// Holdfast ships two implementations — memDatastore (memds.go) and
// badgerDatastore (badgerds.go) — and accepts any type satisfying this
// interface so an embedder can plug in their own backing store.
//
// All implementations must guarantee:
//   - Thread-safety for all operations
//   - Atomic, non-corrupting behavior under concurrent access
//   - Consistent use of ErrKeyNotFound
type Datastore interface {
	// Get retrieves a value by key. Returns ErrKeyNotFound if the key
	// doesn't exist. The returned slice is owned by the caller.
	Get(key []byte) ([]byte, error)

	// Put stores value under key, creating or overwriting the entry.
	Put(key []byte, value []byte) error

	// Delete removes key. It is idempotent: deleting an absent key is
	// not an error.
	Delete(key []byte) error

	// Scan calls fn once per stored key/value pair whose key has the
	// given prefix, in ascending key order, stopping early if fn returns
	// false. The value slice handed to fn is not retained after fn
	// returns.
	Scan(prefix []byte, fn func(key, value []byte) bool) error

	// Close releases any resources held by the datastore.
	Close() error
}
