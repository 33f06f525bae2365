package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	eventqueue "github.com/okian/spendlens/internal/adapters/mq/queue"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/types"
	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/metrics"
)

// IngestResult acknowledges one accepted event.
type IngestResult struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Ingest validates e and queues it for storage. Events without an id get a
// random one. An id seen recently is acknowledged as a duplicate without
// being queued again.
func (s *Service) Ingest(ctx context.Context, e model.PurchaseEvent) (IngestResult, error) { //nolint:gocritic // hugeParam: events are values end to end
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return IngestResult{}, ErrUnavailable
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Category = model.ParseCategory(string(e.Category))
	if err := e.Validate(); err != nil {
		metrics.RecordErrorByComponent("ingest", "invalid_event")
		return IngestResult{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	if s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordEventDuplicate()
		s.log.Debug(ctx, "duplicate event detected, skipping", logger.String("eventID", e.ID))
		return IngestResult{EventID: e.ID, Duplicate: true}, nil
	}

	if err := s.eventQueue.Enqueue(ctx, e); err != nil {
		// Let a retry of the same id through.
		s.deduper.Unrecord(ctx, e.ID)
		switch {
		case errors.Is(err, eventqueue.ErrFull):
			return IngestResult{}, fmt.Errorf("%w: %v", ErrBackpressure, err)
		case errors.Is(err, eventqueue.ErrClosed):
			return IngestResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		default:
			return IngestResult{}, err
		}
	}
	return IngestResult{EventID: e.ID}, nil
}

// Subjects lists every stored subject.
func (s *Service) Subjects(ctx context.Context) ([]types.Subject, error) {
	store := s.eventStore()
	if store == nil {
		return nil, ErrUnavailable
	}
	return store.Subjects(ctx)
}
