package learn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Loader reads a model from persistent storage.
type Loader[T any] func(ctx context.Context) (*T, error)

// Slot holds the current model of one kind. Readers never block on each
// other and always see either the old or the new model. The first Get
// loads lazily; a failed load is retried no sooner than retryAfter.
type Slot[T any] struct {
	name       string
	load       Loader[T]
	retryAfter time.Duration

	cur      atomic.Pointer[T]
	mu       sync.Mutex
	failedAt time.Time
	now      func() time.Time
}

// NewSlot creates an empty slot. load may be nil for slots filled only by Swap.
func NewSlot[T any](name string, load Loader[T], retryAfter time.Duration) *Slot[T] {
	return &Slot[T]{name: name, load: load, retryAfter: retryAfter, now: time.Now}
}

// Get returns the current model, loading it on first use.
func (s *Slot[T]) Get(ctx context.Context) (*T, error) {
	if m := s.cur.Load(); m != nil {
		return m, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.cur.Load(); m != nil {
		return m, nil
	}
	if s.load == nil {
		return nil, fmt.Errorf("%w: %s not trained", ErrModelUnavailable, s.name)
	}
	if !s.failedAt.IsZero() && s.now().Sub(s.failedAt) < s.retryAfter {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, s.name)
	}
	m, err := s.load(ctx)
	if err != nil {
		s.failedAt = s.now()
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, s.name, err)
	}
	if m == nil {
		s.failedAt = s.now()
		return nil, fmt.Errorf("%w: %s: empty", ErrModelUnavailable, s.name)
	}
	s.cur.Store(m)
	s.failedAt = time.Time{}
	return m, nil
}

// Swap publishes m and returns the previous model.
func (s *Slot[T]) Swap(m *T) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedAt = time.Time{}
	return s.cur.Swap(m)
}

// Peek returns the loaded model without triggering a load.
func (s *Slot[T]) Peek() *T {
	return s.cur.Load()
}

// Name returns the slot name.
func (s *Slot[T]) Name() string { return s.name }
