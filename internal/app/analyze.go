package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/spendlens/internal/adapters/repository"
	"github.com/okian/spendlens/internal/domain/alerting"
	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/insights"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/types"
	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/metrics"
)

// Analyze runs the full pipeline over a stored subject.
func (s *Service) Analyze(ctx context.Context, subjectID string) (types.Analysis, error) {
	events, err := s.history(ctx, subjectID)
	if err != nil {
		return types.Analysis{}, err
	}
	return s.AnalyzeEvents(ctx, subjectID, events), nil
}

// Personality types a stored subject.
func (s *Service) Personality(ctx context.Context, subjectID string) (model.PersonalityProfile, error) {
	events, err := s.history(ctx, subjectID)
	if err != nil {
		return model.PersonalityProfile{}, err
	}
	w := s.extract(events)
	p := s.classifier.Classify(ctx, w)
	metrics.RecordPersonalitySource(string(p.Source))
	return p, nil
}

// Anomalies assesses a stored subject against its own history.
func (s *Service) Anomalies(ctx context.Context, subjectID string) (anomaly.Report, error) {
	events, err := s.history(ctx, subjectID)
	if err != nil {
		return anomaly.Report{}, err
	}
	w := s.extract(events)
	r := s.detector.Detect(ctx, w)
	recordReport(r)
	return r, nil
}

// AnalyzeEvents runs the pipeline over events that need not be stored.
// It never fails: missing models fall back to rules and missing data
// yields an insufficient-data analysis.
func (s *Service) AnalyzeEvents(ctx context.Context, subjectID string, events []model.PurchaseEvent) types.Analysis {
	start := time.Now()

	w := s.extract(events)
	profile := s.classifier.Classify(ctx, w)
	report := s.detector.Detect(ctx, w)
	alerts := s.engine.Fuse(ctx, alerting.Input{Windows: w, Profile: profile, Report: report})

	a := types.Analysis{
		SubjectID:        subjectID,
		GeneratedAt:      w.AsOf,
		InsufficientData: w.InsufficientData,
		ExcludedEvents:   w.Excluded,
		Features:         types.Summarize(w),
		Personality:      profile,
		Anomalies:        report,
		Alerts:           alerts,
		Scores:           types.NewScores(w.RecentCount+w.HistoricalCount, profile.Confidence, report.RiskLevel),
		Insights:         s.patterns.Derive(ctx, insights.Input{Events: events, Windows: w, Profile: profile}),
		Models:           s.versions(),
	}

	status := "ok"
	if a.InsufficientData {
		status = "insufficient_data"
	}
	metrics.RecordAnalysis(status, float64(time.Since(start).Milliseconds()))
	metrics.RecordPersonalitySource(string(profile.Source))
	recordReport(report)
	for _, al := range alerts {
		metrics.RecordAlertEmitted(string(al.Severity))
	}
	s.log.Debug(ctx, "analysis complete",
		logger.String("subject", subjectID),
		logger.String("archetype", profile.Archetype),
		logger.String("risk", string(report.RiskLevel)),
		logger.Int("alerts", len(alerts)),
	)
	return a
}

func (s *Service) history(ctx context.Context, subjectID string) ([]model.PurchaseEvent, error) {
	store := s.eventStore()
	if store == nil {
		return nil, ErrUnavailable
	}
	events, err := store.Events(ctx, subjectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("load events of %s: %w", subjectID, err)
	}
	return events, nil
}

func (s *Service) extract(events []model.PurchaseEvent) features.Windows {
	w := s.extractor.Extract(events, s.cfg.WindowDays)
	metrics.RecordInvalidEvents(w.Excluded)
	return w
}

func recordReport(r anomaly.Report) {
	metrics.RecordRiskLevel(string(r.RiskLevel))
	for _, f := range r.Findings {
		metrics.RecordAnomalyFinding(string(f.Type), string(f.Severity))
	}
	if r.Decision != nil {
		metrics.RecordOutlierDecision(*r.Decision)
	}
}
