package insights

import (
	"math"
	"time"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/model"
)

// Thresholds holds the pattern cut-offs. Shares are in percent.
type Thresholds struct {
	// Consistency needs at least MinEvents events.
	MinEvents int

	// Growth looks at the last RecentDays days.
	RecentDays        int
	DiverseCategories int
	PriceLow          float64
	PriceHigh         float64

	SnackShare      float64
	EducationShare  float64
	MinPurchases    float64
	WeekdayVariance float64
}

// DefaultThresholds returns the stock cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinEvents:         5,
		RecentDays:        14,
		DiverseCategories: 3,
		PriceLow:          1000,
		PriceHigh:         5000,
		SnackShare:        60,
		EducationShare:    10,
		MinPurchases:      5,
		WeekdayVariance:   5,
	}
}

// Messages attached to growth indicators and risk factors.
const (
	GrowthEducation  = "Interest in educational items is growing."
	GrowthDiversity  = "Showing interest in many different areas."
	GrowthPriceRange = "Choosing items in a sensible price range."

	RiskSnackHeavy     = "Snacks make up a large share of spending; aim for a more balanced mix."
	RiskLowEducation   = "Try raising the share of educational items."
	RiskIrregularWeeks = "Purchases are irregular across the week; a routine may help."
)

const (
	neutralConsistency = 0.5
	day                = 24 * time.Hour
)

// Consistency scores how steady weekly spend is as 1/(1+cv), rounded to
// two decimals. Fewer than minEvents events score 0 and a single ISO
// week scores 0.5. A zero mean counts as cv 1.
func Consistency(events []model.PurchaseEvent, minEvents int) float64 {
	if len(events) == 0 || len(events) < minEvents {
		return 0
	}
	type week struct{ year, week int }
	weekly := make(map[week]float64)
	for _, e := range events {
		y, w := e.OccurredAt.UTC().ISOWeek()
		weekly[week{y, w}] += e.Amount()
	}
	if len(weekly) < 2 {
		return neutralConsistency
	}

	var sum float64
	for _, v := range weekly {
		sum += v
	}
	n := float64(len(weekly))
	mean := sum / n
	cv := 1.0
	if mean > 0 {
		var ss float64
		for _, v := range weekly {
			ss += (v - mean) * (v - mean)
		}
		cv = math.Sqrt(ss/(n-1)) / mean
	}
	return math.Round(100/(1+cv)) / 100
}

// Growth lists the positive signals of the last th.RecentDays calendar
// days before asOf.
func Growth(events []model.PurchaseEvent, asOf time.Time, th Thresholds) []string {
	out := []string{}
	y, m, d := asOf.UTC().Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(-time.Duration(th.RecentDays) * day)

	var (
		education int
		priced    float64
		count     int
	)
	categories := make(map[model.Category]struct{})
	for _, e := range events {
		if e.OccurredAt.Before(cutoff) {
			continue
		}
		count++
		priced += e.UnitPrice
		categories[e.Category] = struct{}{}
		if e.Category == model.CategoryEducation {
			education++
		}
	}
	if count == 0 {
		return out
	}

	if education > 0 {
		out = append(out, GrowthEducation)
	}
	if len(categories) >= th.DiverseCategories {
		out = append(out, GrowthDiversity)
	}
	if avg := priced / float64(count); avg >= th.PriceLow && avg <= th.PriceHigh {
		out = append(out, GrowthPriceRange)
	}
	return out
}

// Risks lists the patterns in v that need attention.
func Risks(v features.Vector, th Thresholds) []string {
	out := []string{}
	if v.Get(features.SnackRatio) > th.SnackShare {
		out = append(out, RiskSnackHeavy)
	}
	if v.Get(features.EducationRatio) < th.EducationShare && v.Get(features.TotalPurchases) > th.MinPurchases {
		out = append(out, RiskLowEducation)
	}
	if v.Get(features.WeekdayVariance) > th.WeekdayVariance {
		out = append(out, RiskIrregularWeeks)
	}
	return out
}
