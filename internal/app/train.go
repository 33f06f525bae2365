package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/personality"
	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/metrics"
)

// TrainResult describes one training run.
type TrainResult struct {
	Trained bool   `json:"trained"`
	Reason  string `json:"reason,omitempty"`

	// Subjects is the number of subjects with usable events; Samples the
	// number of windows the outlier model saw.
	Subjects int `json:"subjects"`
	Samples  int `json:"samples"`

	PersonalityVersion string    `json:"personality_version,omitempty"`
	AnomalyVersion     string    `json:"anomaly_version,omitempty"`
	TrainedAt          time.Time `json:"trained_at"`
}

// Train fits both population models on every stored subject, persists them
// and swaps them in. Runs are serialized. When either model cannot be
// fitted nothing is replaced and the result carries the reason.
func (s *Service) Train(ctx context.Context) (TrainResult, error) {
	store := s.eventStore()
	if store == nil {
		return TrainResult{}, ErrUnavailable
	}
	subjects, err := store.Subjects(ctx)
	if err != nil {
		return TrainResult{}, fmt.Errorf("list subjects: %w", err)
	}
	ids := make([]string, len(subjects))
	for i, sub := range subjects {
		ids[i] = sub.SubjectID
	}
	return s.train(ctx, ids, func(ctx context.Context, id string) ([]model.PurchaseEvent, error) {
		return store.Events(ctx, id)
	})
}

// TrainEvents trains on an in-memory population keyed by subject.
func (s *Service) TrainEvents(ctx context.Context, population map[string][]model.PurchaseEvent) (TrainResult, error) {
	ids := make([]string, 0, len(population))
	for id := range population {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return s.train(ctx, ids, func(_ context.Context, id string) ([]model.PurchaseEvent, error) {
		return population[id], nil
	})
}

type fetchFunc func(ctx context.Context, subjectID string) ([]model.PurchaseEvent, error)

func (s *Service) train(ctx context.Context, ids []string, fetch fetchFunc) (TrainResult, error) {
	if s.modelStore() == nil {
		return TrainResult{}, ErrUnavailable
	}
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	start := time.Now()
	res := TrainResult{TrainedAt: s.now()}
	log := s.log.Named("train")

	profiles, windows, err := s.population(ctx, ids, fetch)
	if err != nil {
		return s.trainFailed(ctx, res, start, err)
	}
	res.Subjects = len(profiles)
	res.Samples = len(windows)
	metrics.UpdateTrainedSubjects(res.Subjects)

	pm, err := personality.Train(profiles, personality.Params{
		Clusters:    s.cfg.ClusterCount,
		Components:  s.cfg.PCAComponents,
		Seed:        s.cfg.RandomSeed,
		MinSubjects: s.cfg.MinTrainingSubjects,
		Now:         s.now,
	})
	if err != nil {
		return s.trainFailed(ctx, res, start, err)
	}
	am, err := anomaly.Train(windows, anomaly.Params{
		Trees:         s.cfg.ForestTrees,
		SampleSize:    s.cfg.ForestSampleSize,
		Contamination: s.cfg.Contamination,
		Seed:          s.cfg.RandomSeed,
		MinSamples:    anomaly.DefaultParams().MinSamples,
		Now:           s.now,
	})
	if err != nil {
		return s.trainFailed(ctx, res, start, err)
	}

	// Each set is swapped in only once it is stored, so a restart loads
	// what readers saw last.
	if err := s.persist(ctx, personalitySet, pm.Encode); err != nil {
		return s.trainFailed(ctx, res, start, err)
	}
	s.personality.Swap(pm)
	if err := s.persist(ctx, anomalySet, am.Encode); err != nil {
		return s.trainFailed(ctx, res, start, err)
	}
	s.anomaly.Swap(am)

	res.Trained = true
	res.PersonalityVersion = pm.Version
	res.AnomalyVersion = am.Version
	metrics.RecordTraining("trained", float64(time.Since(start).Milliseconds()))
	log.Info(ctx, "models trained",
		logger.Int("subjects", res.Subjects),
		logger.Int("samples", res.Samples),
		logger.String("personality", pm.Version),
		logger.String("anomaly", am.Version),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

// population extracts one profile vector per subject and every tumbling
// window vector, in subject order.
func (s *Service) population(ctx context.Context, ids []string, fetch fetchFunc) ([]features.Vector, []features.Vector, error) {
	type sample struct {
		profile features.Vector
		windows []features.Vector
		ok      bool
	}
	samples := make([]sample, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, id := range ids {
		g.Go(func() error {
			events, err := fetch(gctx, id)
			if err != nil {
				return fmt.Errorf("load events of %s: %w", id, err)
			}
			w := s.extractor.Extract(events, s.cfg.WindowDays)
			if w.InsufficientData {
				return nil
			}
			samples[i] = sample{
				profile: w.Profile(),
				windows: features.Tumbling(events, s.cfg.WindowDays),
				ok:      true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var profiles, windows []features.Vector
	for _, sm := range samples {
		if !sm.ok {
			continue
		}
		profiles = append(profiles, sm.profile)
		windows = append(windows, sm.windows...)
	}
	return profiles, windows, nil
}

func (s *Service) persist(ctx context.Context, set string, encode func() (map[string][]byte, error)) error {
	blobs, err := encode()
	if err != nil {
		return fmt.Errorf("encode %s model: %w", set, err)
	}
	store := s.modelStore()
	if store == nil {
		return ErrUnavailable
	}
	if err := store.Save(ctx, set, blobs); err != nil {
		return fmt.Errorf("save %s model: %w", set, err)
	}
	return nil
}

func (s *Service) trainFailed(ctx context.Context, res TrainResult, start time.Time, err error) (TrainResult, error) {
	outcome := "error"
	if errors.Is(err, personality.ErrInsufficientPopulation) || errors.Is(err, anomaly.ErrInsufficientSamples) {
		outcome = "insufficient_data"
	}
	metrics.RecordTraining(outcome, float64(time.Since(start).Milliseconds()))
	res.Reason = err.Error()
	s.log.Warn(ctx, "cannot train models", logger.String("outcome", outcome), logger.Error(err))
	return res, err
}
