// Package artifacts persists trained model blobs. Blobs are grouped in
// named sets (one per model); a set is replaced as a whole.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	ErrNotFound       = errors.New("artifact set not found")
	ErrInvalidName    = errors.New("invalid artifact name")
	ErrUnknownBackend = errors.New("unknown model store")
)

// Store reads and writes artifact sets.
type Store interface {
	// Load returns every blob of set keyed by role.
	// Returns ErrNotFound if the set was never saved.
	Load(ctx context.Context, set string) (map[string][]byte, error)

	// Save replaces set with blobs. Readers see either the old set or the
	// new one, never a mix.
	Save(ctx context.Context, set string, blobs map[string][]byte) error

	Close() error
}

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Open builds the store named by backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		return NewFileStore(dir)
	case BackendBadger:
		return NewBadgerStore(dir)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// validName rejects names that could escape a directory or clash with
// key separators.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\:") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func validSet(set string, blobs map[string][]byte) error {
	if err := validName(set); err != nil {
		return err
	}
	if len(blobs) == 0 {
		return fmt.Errorf("%w: empty set %q", ErrInvalidName, set)
	}
	for role := range blobs {
		if err := validName(role); err != nil {
			return err
		}
	}
	return nil
}
