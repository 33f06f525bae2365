// Package service wires storage, ingestion and the analysis components
// into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/spendlens/internal/adapters/artifacts"
	eventqueue "github.com/okian/spendlens/internal/adapters/mq/queue"
	workerpool "github.com/okian/spendlens/internal/adapters/mq/worker"
	"github.com/okian/spendlens/internal/adapters/repository"
	"github.com/okian/spendlens/internal/config"
	"github.com/okian/spendlens/internal/domain/alerting"
	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/dedupe"
	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/insights"
	"github.com/okian/spendlens/internal/domain/learn"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/personality"
	"github.com/okian/spendlens/internal/domain/types"
	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/metrics"
)

// Artifact sets, one per model.
const (
	personalitySet = "personality"
	anomalySet     = "anomaly"
)

// A failed model load is retried no sooner than this.
const modelRetryAfter = 30 * time.Second

// Service owns the event store, the model store, the ingestion pipeline and
// the analysis components.
type Service struct {
	mu  sync.RWMutex
	cfg config.Config
	log logger.Logger
	now func() time.Time

	// Storage; opened on Start unless injected.
	events repository.Store
	models artifacts.Store

	// Ingestion
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Analysis
	extractor   *features.Extractor
	personality *learn.Slot[personality.Model]
	anomaly     *learn.Slot[anomaly.Model]
	classifier  *personality.Classifier
	detector    *anomaly.Detector
	engine      *alerting.Engine
	patterns    *insights.Analyzer

	trainMu sync.Mutex
	started bool
}

// New constructs a service from cfg. Nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg: *cfg,
		log: logger.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.personality = learn.NewSlot(personalitySet, loader(s, personalitySet, personality.Decode), modelRetryAfter)
	s.anomaly = learn.NewSlot(anomalySet, loader(s, anomalySet, anomaly.Decode), modelRetryAfter)

	s.extractor = features.NewExtractor(
		features.WithClock(s.now),
		features.WithDefaultWindowDays(s.cfg.WindowDays),
	)
	s.classifier = personality.NewClassifier(s.personality,
		personality.WithLogger(s.log.Named("personality")),
		personality.WithClusterArchetypes(s.cfg.ClusterArchetypes),
	)
	s.detector = anomaly.NewDetector(s.anomaly,
		anomaly.WithLogger(s.log.Named("anomaly")),
		anomaly.WithMaxFindings(s.cfg.MaxFindings),
		anomaly.WithSensitiveCategory(model.ParseCategory(s.cfg.SensitiveCategory)),
		anomaly.WithClock(s.now),
	)
	s.engine = alerting.NewEngine(
		alerting.WithLogger(s.log.Named("alerting")),
		alerting.WithMaxAlerts(s.cfg.MaxAlerts),
	)
	s.patterns = insights.NewAnalyzer(insights.WithLogger(s.log.Named("insights")))
	return s
}

// loader reads one artifact set and decodes it.
func loader[T any](s *Service, set string, decode func(map[string][]byte) (*T, error)) learn.Loader[T] {
	return func(ctx context.Context) (*T, error) {
		store := s.modelStore()
		if store == nil {
			return nil, ErrUnavailable
		}
		blobs, err := store.Load(ctx, set)
		if err != nil {
			if errors.Is(err, artifacts.ErrNotFound) {
				metrics.RecordModelLoad(set, "missing")
			} else {
				metrics.RecordModelLoad(set, "error")
			}
			return nil, err
		}
		m, err := decode(blobs)
		if err != nil {
			metrics.RecordModelLoad(set, "invalid")
			s.log.Warn(ctx, "stored model rejected", logger.String("set", set), logger.Error(err))
			return nil, err
		}
		metrics.RecordModelLoad(set, "loaded")
		s.log.Info(ctx, "model loaded", logger.String("set", set))
		return m, nil
	}
}

// Start opens the stores and starts the ingestion workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.log.Info(ctx, "starting spendlens service...")

	if s.events == nil {
		store, err := repository.Open(ctx, s.cfg.EventStore, s.cfg.SQLitePath,
			repository.WithLogger(s.log.Named("repository")))
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		s.events = store
	}
	if s.models == nil {
		store, err := artifacts.Open(s.cfg.ModelStore, s.cfg.ModelDir)
		if err != nil {
			_ = s.events.Close()
			s.events = nil
			return fmt.Errorf("open model store: %w", err)
		}
		s.models = store
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.EventQueueSize))
	s.workerPool = workerpool.NewPool(s.cfg.WorkerCount, s.eventQueue, s.events,
		workerpool.WithLogger(s.log.Named("ingest")))
	s.workerPool.Start(ctx)

	s.started = true
	s.log.Info(ctx, "spendlens service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queueSize", s.cfg.EventQueueSize),
		logger.String("eventStore", s.cfg.EventStore),
		logger.String("modelStore", s.cfg.ModelStore),
	)
	return nil
}

// Stop drains the ingestion queue and closes both stores.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.log.Info(ctx, "stopping spendlens service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event store: %w", err))
	}
	if err := s.models.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close model store: %w", err))
	}

	s.started = false
	s.log.Info(ctx, "spendlens service stopped")
	return errors.Join(errs...)
}

// Started reports whether Start has run and Stop has not.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) eventStore() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.events
}

func (s *Service) modelStore() artifacts.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.models
}

// Stats reports service state together with the headline counters.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"worker_count": s.cfg.WorkerCount,
		"queue_size":   s.cfg.EventQueueSize,
		"dedupe_size":  s.cfg.DedupeSize,
		"models":       s.versions(),
	}
	if s.started {
		stats["queue_length"] = s.eventQueue.Len(ctx)
		stats["events_stored"] = s.events.Count(ctx)
		stats["dedupe_entries"] = s.deduper.Size()
	}

	totals, err := metrics.Totals(counterNames...)
	if err != nil {
		return stats, err
	}
	counters := make(map[string]float64, len(totals))
	for name, v := range totals {
		counters[name[len(metricsNamespace):]] = v
	}
	stats["counters"] = counters
	return stats, nil
}

const metricsNamespace = "spendlens_"

var counterNames = []string{
	metricsNamespace + "analyses_total",
	metricsNamespace + "events_ingested_total",
	metricsNamespace + "events_duplicate_total",
	metricsNamespace + "invalid_events_total",
	metricsNamespace + "alerts_emitted_total",
	metricsNamespace + "anomaly_findings_total",
	metricsNamespace + "model_training_total",
	metricsNamespace + "queue_enqueue_errors_total",
	metricsNamespace + "subjects_total",
}

func (s *Service) versions() types.ModelVersions {
	var v types.ModelVersions
	if m := s.personality.Peek(); m != nil {
		v.Personality = m.Version
	}
	if m := s.anomaly.Peek(); m != nil {
		v.Anomaly = m.Version
	}
	return v
}
