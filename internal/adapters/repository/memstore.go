package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/types"
	"github.com/okian/spendlens/pkg/metrics"
)

// MemoryStore keeps every event in memory. Each subject's slice is kept
// sorted by time so reads are a copy.
type MemoryStore struct {
	mu        sync.RWMutex
	bySubject map[string][]model.PurchaseEvent
	ids       map[string]struct{}

	opts     options
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		bySubject: make(map[string][]model.PurchaseEvent),
		ids:       make(map[string]struct{}),
		opts:      defaultOptions(),
		stopChan:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Append inserts e in time order.
func (s *MemoryStore) Append(_ context.Context, e model.PurchaseEvent) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryAppendLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[e.ID]; ok {
		return false, nil
	}
	s.ids[e.ID] = struct{}{}

	events := s.bySubject[e.SubjectID]
	i := sort.Search(len(events), func(i int) bool {
		return events[i].OccurredAt.After(e.OccurredAt)
	})
	events = append(events, model.PurchaseEvent{})
	copy(events[i+1:], events[i:])
	events[i] = e
	s.bySubject[e.SubjectID] = events
	return true, nil
}

// Events returns a copy of the subject's events.
func (s *MemoryStore) Events(_ context.Context, subjectID string) ([]model.PurchaseEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	events, ok := s.bySubject[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.PurchaseEvent, len(events))
	copy(out, events)
	return out, nil
}

// Subjects lists subjects ordered by id.
func (s *MemoryStore) Subjects(_ context.Context) ([]types.Subject, error) {
	s.mu.RLock()
	out := make([]types.Subject, 0, len(s.bySubject))
	for id, events := range s.bySubject {
		out = append(out, types.Subject{SubjectID: id, Events: len(events)})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

// Count returns the number of stored events.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.RLock()
				n := len(s.bySubject)
				s.mu.RUnlock()
				metrics.UpdateSubjectsTotal(n)
			}
		}
	}()
}
