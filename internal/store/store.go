// Package store implements the content-addressed storage providers.
//
// The Store interface is a minimal key-value abstraction over node
// encodings. Keys always equal the content hash of the stored bytes, so
// puts are idempotent and safe to repeat or race.
package store

import (
	"context"
	"errors"
)

// ErrNotFound reports a key with no stored object.
var ErrNotFound = errors.New("store: object not found")

// Store handles content storage.
type Store interface {
	// Get retrieves an object by key. Absent keys return an error
	// wrapping ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores an object under its content key. Callers only ever pass
	// the correct hash of data, so implementations may overwrite blindly.
	Put(ctx context.Context, key string, data []byte) error

	// Has checks whether an object exists without reading it.
	Has(ctx context.Context, key string) (bool, error)

	// GetRef resolves a mutable name to a root key.
	GetRef(ref string) (string, error)

	// PutRef stores a mutable name for a root key.
	PutRef(ref, key string) error
}
