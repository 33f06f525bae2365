package personality

import (
	"math"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/model"
)

// Rule is one fallback classification branch.
type Rule struct {
	Name       string
	Archetype  string
	Match      func(v features.Vector) bool
	Confidence func(v features.Vector) float64
}

// DefaultRules returns the fallback rules in evaluation order. The first
// match wins regardless of how strongly later rules would match.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "education_share",
			Archetype: LearningOriented,
			Match:     func(v features.Vector) bool { return v.Ratio(model.CategoryEducation) > 40 },
			Confidence: func(v features.Vector) float64 {
				return math.Min(0.9, v.Ratio(model.CategoryEducation)/50)
			},
		},
		{
			Name:      "snack_share",
			Archetype: FunSeeking,
			Match:     func(v features.Vector) bool { return v.Ratio(model.CategorySnack) > 50 },
			Confidence: func(v features.Vector) float64 {
				return math.Min(0.8, v.Ratio(model.CategorySnack)/60)
			},
		},
		{
			Name:      "toy_or_entertainment_share",
			Archetype: CreativeExplorer,
			Match: func(v features.Vector) bool {
				return v.Ratio(model.CategoryToy) > 30 || v.Ratio(model.CategoryEntertainment) > 25
			},
			Confidence: func(v features.Vector) float64 {
				return math.Min(0.8, math.Max(v.Ratio(model.CategoryToy), v.Ratio(model.CategoryEntertainment))/40)
			},
		},
		{
			Name:       "few_purchases",
			Archetype:  Cautious,
			Match:      func(v features.Vector) bool { return v.Get(features.TotalPurchases) < 5 },
			Confidence: func(features.Vector) float64 { return 0.7 },
		},
		{
			Name:       "default",
			Archetype:  Balanced,
			Match:      func(features.Vector) bool { return true },
			Confidence: func(features.Vector) float64 { return 0.75 },
		},
	}
}

// evaluate returns the first matching rule, or a balanced default.
func evaluate(rules []Rule, v features.Vector) (string, float64) {
	for _, r := range rules {
		if r.Match(v) {
			return r.Archetype, clip01(r.Confidence(v))
		}
	}
	return Balanced, 0.75
}

func clip01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
