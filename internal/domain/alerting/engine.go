// Package alerting fuses headline checks, anomaly findings and personality
// suggestions into one short, ordered alert list.
package alerting

import (
	"context"
	"sort"

	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/dedupe"
	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/pkg/logger"
)

const defaultMaxAlerts = 8

// Input is everything one fusion needs.
type Input struct {
	Windows features.Windows
	Profile model.PersonalityProfile
	Report  anomaly.Report
}

// Engine builds alert lists.
type Engine struct {
	headline  HeadlineThresholds
	maxAlerts int
	log       logger.Logger
}

// NewEngine creates an engine with the default thresholds and a cap of 8.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		headline:  DefaultHeadlineThresholds(),
		maxAlerts: defaultMaxAlerts,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fuse collects alerts from all three sources and merges them.
func (e *Engine) Fuse(ctx context.Context, in Input) []model.Alert {
	return e.Merge(ctx,
		Headline(in.Windows, e.headline),
		FromFindings(in.Report.Findings),
		Suggestions(in.Profile, in.Windows.Profile()),
	)
}

// Merge concatenates sources in order, drops alerts whose title and
// message were already seen, orders by severity keeping source order on
// ties, caps the list and numbers priorities from 1.
func (e *Engine) Merge(ctx context.Context, sources ...[]model.Alert) []model.Alert {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	out := []model.Alert{}
	dupes := 0
	for _, src := range sources {
		for _, a := range src {
			if seen.SeenAndRecord(ctx, dedupe.Key(a.Title, a.Message)) {
				dupes++
				continue
			}
			out = append(out, a)
		}
	}
	if dupes > 0 {
		e.log.Debug(ctx, "duplicate alerts dropped", logger.Int("count", dupes))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	if len(out) > e.maxAlerts {
		e.log.Debug(ctx, "alerts capped", logger.Int("total", len(out)), logger.Int("kept", e.maxAlerts))
		out = out[:e.maxAlerts]
	}
	for i := range out {
		out[i].Priority = i + 1
	}
	return out
}
