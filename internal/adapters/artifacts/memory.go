package artifacts

import (
	"context"
	"sync"
)

// MemoryStore keeps sets in memory; nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, set string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blobs, ok := s.sets[set]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBlobs(blobs), nil
}

func (s *MemoryStore) Save(_ context.Context, set string, blobs map[string][]byte) error {
	if err := validSet(set, blobs); err != nil {
		return err
	}
	cp := copyBlobs(blobs)
	s.mu.Lock()
	s.sets[set] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func copyBlobs(in map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(in))
	for k, v := range in {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
