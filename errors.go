package casfa

import (
	"errors"
	"fmt"

	"github.com/shazhou-ww/casfa-sub008/internal/store"
)

var (
	// ErrNotFound reports a key with no stored object.
	// Re-exported from internal/store for convenience.
	ErrNotFound = store.ErrNotFound

	// ErrDataIntegrity reports corrupted node data or a producer bug:
	// a node that fails to decode, or a set/successor node where only
	// dict children may appear. Callers must abort the containing
	// operation rather than retry.
	ErrDataIntegrity = errors.New("casfa: data integrity violation")
)

// IntegrityError carries the path and key at which corrupted node data was
// encountered. It unwraps to ErrDataIntegrity.
type IntegrityError struct {
	Path   string
	Key    string
	Reason string
}

func (e *IntegrityError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("casfa: integrity violation at %s (key %s): %s", path, e.Key, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrDataIntegrity }
