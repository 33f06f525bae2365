// Package repository stores purchase events per subject.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/types"
)

// Store provides read/write access to purchase history.
type Store interface {
	// Append stores e. It returns false without error when an event with
	// the same id is already stored.
	Append(ctx context.Context, e model.PurchaseEvent) (bool, error)

	// Events returns a subject's events ordered by time.
	// Returns ErrNotFound if the subject is unknown.
	Events(ctx context.Context, subjectID string) ([]model.PurchaseEvent, error)

	// Subjects lists every subject with its event count, ordered by id.
	Subjects(ctx context.Context) ([]types.Subject, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) int

	Close() error
}

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open builds the store named by backend. path is used by sqlite only.
func Open(ctx context.Context, backend, path string, opts ...Option) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(ctx, opts...), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
