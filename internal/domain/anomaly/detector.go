// Package anomaly compares a subject's recent purchases with its own history
// and, when a population outlier model is loaded, with everyone else.
package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/learn"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/pkg/logger"
)

const defaultMaxFindings = 5

// Detector runs the rule scan and the optional statistical scan.
type Detector struct {
	models      *learn.Slot[Model]
	th          Thresholds
	sensitive   model.Category
	maxFindings int
	now         func() time.Time
	log         logger.Logger
}

// NewDetector creates a detector. A nil slot disables the statistical scan.
func NewDetector(slot *learn.Slot[Model], opts ...Option) *Detector {
	d := &Detector{
		models:      slot,
		th:          DefaultThresholds(),
		sensitive:   model.CategorySnack,
		maxFindings: defaultMaxFindings,
		now:         time.Now,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect assesses w. An empty history yields StatusInsufficientData, never
// an empty OK report.
func (d *Detector) Detect(ctx context.Context, w features.Windows) Report {
	if w.InsufficientData {
		return Report{
			Status:          StatusInsufficientData,
			Findings:        []model.AnomalyFinding{},
			RiskLevel:       RiskLow,
			Summary:         "Not enough purchase data to assess anomalies.",
			Recommendations: []string{},
		}
	}

	now := d.now()
	findings := d.scan(w, now)

	r := Report{Status: StatusOK}
	if f, decision, ok := d.outlier(ctx, w, now); ok {
		r.Statistical = true
		r.Decision = &decision
		if f != nil {
			findings = append(findings, *f)
		}
	}

	findings = prioritize(findings, d.maxFindings)
	r.Findings = findings
	r.RiskLevel = riskOf(findings)
	r.Summary = summarize(findings)
	r.Recommendations = recommend(findings)
	return r
}

// scan applies the individual rules, then the emotional shopping composite.
func (d *Detector) scan(w features.Windows, now time.Time) []model.AnomalyFinding {
	th := d.th
	var out []model.AnomalyFinding
	add := func(f model.AnomalyFinding) {
		f.DetectedAt = now
		out = append(out, f)
	}

	spend := w.Change.Pct(features.TotalSpent)
	if spend > th.SpendingSpike {
		add(model.AnomalyFinding{
			Type:       model.FindingSpendingSpike,
			Severity:   model.SeverityWarning,
			Confidence: math.Min(spend/300, 1),
			Message:    fmt.Sprintf("Spending rose %.1f%% over the previous period.", spend),
			Details: map[string]float64{
				"change_percent": spend,
				"recent":         w.Recent.Get(features.TotalSpent),
				"historical":     w.Historical.Get(features.TotalSpent),
			},
		})
	}

	freq := w.Change.Pct(features.TotalPurchases)
	if math.Abs(freq) > th.FrequencyChange {
		add(model.AnomalyFinding{
			Type:       model.FindingFrequencyChange,
			Severity:   model.SeverityWarning,
			Confidence: math.Min(math.Abs(freq)/200, 1),
			Message:    fmt.Sprintf("Purchase frequency changed by %+.1f%%.", freq),
			Details:    map[string]float64{"change_percent": freq},
		})
	}

	if w.Change != nil {
		for _, c := range model.Categories {
			s := w.Change.ShiftOf(c)
			if math.Abs(s) <= th.CategoryShift {
				continue
			}
			add(model.AnomalyFinding{
				Type:       model.FindingCategoryShift,
				Severity:   model.SeverityInfo,
				Confidence: math.Min(math.Abs(s)/50, 1),
				Message:    fmt.Sprintf("Share of %s changed by %+.1f points.", c, s),
				Category:   c,
				Details: map[string]float64{
					"shift_points":     s,
					"recent_ratio":     w.Recent.Ratio(c),
					"historical_ratio": w.Historical.Ratio(c),
				},
			})
		}
	}

	impulse := w.Recent.Get(features.ImpulseScore)
	if impulse > th.ImpulseScore {
		add(model.AnomalyFinding{
			Type:       model.FindingImpulseBuying,
			Severity:   model.SeverityWarning,
			Confidence: math.Min(impulse/0.5, 1),
			Message:    fmt.Sprintf("%.1f%% of purchases came within an hour of the previous one.", impulse*100),
			Details:    map[string]float64{"impulse_score": impulse},
		})
	}

	hours := w.Change.Pct(features.HourVariance)
	if math.Abs(hours) > th.TimePatternShift {
		add(model.AnomalyFinding{
			Type:       model.FindingTimePatternShift,
			Severity:   model.SeverityInfo,
			Confidence: math.Min(math.Abs(hours)/150, 1),
			Message:    "Purchases happen at different times of day than usual.",
			Details:    map[string]float64{"change_percent": hours},
		})
	}

	sensitiveShift := w.Change.ShiftOf(d.sensitive)
	minInterval := w.Recent.Get(features.MinInterval)
	signals := 0
	for _, hit := range []bool{
		impulse > th.EmotionalImpulse,
		spend > th.EmotionalSpendChange,
		sensitiveShift > th.EmotionalSensitiveShift,
		minInterval < th.EmotionalMinInterval,
	} {
		if hit {
			signals++
		}
	}
	if signals >= th.EmotionalMinSignals {
		add(model.AnomalyFinding{
			Type:       model.FindingEmotionalShopping,
			Severity:   model.SeverityAlert,
			Confidence: float64(signals) / 4,
			Message:    "Spending looks driven by a change in mood.",
			Details: map[string]float64{
				"signals":         float64(signals),
				"impulse_score":   impulse,
				"spend_change":    spend,
				"sensitive_shift": sensitiveShift,
				"min_interval":    minInterval,
			},
		})
	}
	return out
}

// outlier scores the recent window with the population model. ok is false
// when no model could be used.
func (d *Detector) outlier(ctx context.Context, w features.Windows, now time.Time) (*model.AnomalyFinding, float64, bool) {
	if d.models == nil || w.RecentCount == 0 {
		return nil, 0, false
	}
	m, err := d.models.Get(ctx)
	if err != nil {
		if errors.Is(err, learn.ErrModelUnavailable) {
			d.log.Debug(ctx, "outlier model unavailable, rules only", logger.Error(err))
		} else {
			d.log.Warn(ctx, "outlier model failed, rules only", logger.Error(err))
		}
		return nil, 0, false
	}
	decision, err := m.Decision(w.Recent)
	if err != nil {
		d.log.Warn(ctx, "outlier scoring failed", logger.Error(err))
		return nil, 0, false
	}
	if decision >= 0 {
		return nil, decision, true
	}
	scale := d.th.OutlierScale
	if scale <= 0 {
		scale = 0.3
	}
	return &model.AnomalyFinding{
		Type:       model.FindingStatisticalOutlier,
		Severity:   model.SeverityWarning,
		Confidence: math.Min(math.Abs(decision)/scale, 1),
		Message:    fmt.Sprintf("Purchase pattern is unusual for the population (score %.3f).", decision),
		Details:    map[string]float64{"decision": decision},
		DetectedAt: now,
	}, decision, true
}

// prioritize orders by severity then confidence, keeping input order on
// ties, and keeps at most limit findings.
func prioritize(findings []model.AnomalyFinding, limit int) []model.AnomalyFinding {
	if findings == nil {
		return []model.AnomalyFinding{}
	}
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := findings[i].Severity.Rank(), findings[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return findings[i].Confidence > findings[j].Confidence
	})
	if limit > 0 && len(findings) > limit {
		findings = findings[:limit]
	}
	return findings
}
