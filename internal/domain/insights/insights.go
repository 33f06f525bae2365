// Package insights derives behavioral patterns and development suggestions
// from a subject's purchase history and personality profile.
package insights

import (
	"context"
	"time"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/pkg/logger"
)

// Patterns summarizes how a subject buys.
type Patterns struct {
	// ConsistencyScore is 1/(1+cv) of weekly spend, in (0,1].
	ConsistencyScore float64  `json:"consistency_score"`
	GrowthIndicators []string `json:"growth_indicators"`
	RiskFactors      []string `json:"risk_factors"`
}

// Report is the insight part of an analysis.
type Report struct {
	BehavioralPatterns     Patterns `json:"behavioral_patterns"`
	DevelopmentSuggestions []string `json:"development_suggestions"`
}

// Input is everything one derivation needs. Events may include invalid
// records; they are skipped.
type Input struct {
	Events  []model.PurchaseEvent
	Windows features.Windows
	Profile model.PersonalityProfile
}

// Analyzer builds insight reports.
type Analyzer struct {
	th  Thresholds
	log logger.Logger
}

// NewAnalyzer creates an analyzer with the default thresholds.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{th: DefaultThresholds(), log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Derive never fails; thin histories yield neutral scores and empty lists.
func (a *Analyzer) Derive(ctx context.Context, in Input) Report {
	valid, _ := features.Valid(in.Events)
	asOf := in.Windows.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	r := Report{
		BehavioralPatterns: Patterns{
			ConsistencyScore: Consistency(valid, a.th.MinEvents),
			GrowthIndicators: Growth(valid, asOf, a.th),
			RiskFactors:      Risks(in.Windows.All, a.th),
		},
		DevelopmentSuggestions: Suggestions(in.Profile.Archetype),
	}
	a.log.Debug(ctx, "insights derived",
		logger.Float64("consistency", r.BehavioralPatterns.ConsistencyScore),
		logger.Int("growth", len(r.BehavioralPatterns.GrowthIndicators)),
		logger.Int("risks", len(r.BehavioralPatterns.RiskFactors)),
	)
	return r
}
