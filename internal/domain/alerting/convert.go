package alerting

import (
	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/personality"
)

type findingText struct {
	title       string
	description string
}

var findingTitles = map[model.FindingType]findingText{
	model.FindingSpendingSpike:      {"Spending spike", "Spending rose well above the usual level."},
	model.FindingCategoryShift:      {"Purchase pattern change", "Purchases moved toward a different category."},
	model.FindingFrequencyChange:    {"Purchase frequency change", "How often purchases happen changed sharply."},
	model.FindingTimePatternShift:   {"Time pattern change", "Purchases happen at unusual times of day."},
	model.FindingImpulseBuying:      {"Possible impulse buying", "Many purchases happened in a short time."},
	model.FindingEmotionalShopping:  {"Emotional spending pattern", "Spending looks driven by stress or a change in mood."},
	model.FindingStatisticalOutlier: {"Unusual pattern detected", "Purchase pattern differs from the population."},
}

var defaultFindingText = findingText{"Pattern change detected", "The purchase pattern changed."}

// FromFindings turns anomaly findings into alerts, keeping their severity.
func FromFindings(findings []model.AnomalyFinding) []model.Alert {
	out := make([]model.Alert, 0, len(findings))
	for _, f := range findings {
		text, ok := findingTitles[f.Type]
		if !ok {
			text = defaultFindingText
		}
		msg := f.Message
		if msg == "" {
			msg = text.description
		}
		out = append(out, model.Alert{Severity: f.Severity, Title: text.title, Message: msg})
	}
	return out
}

const tentativeBelow = 0.4

// Suggestions derives alerts from the personality profile and the vector
// it was computed on.
func Suggestions(p model.PersonalityProfile, v features.Vector) []model.Alert {
	if p.InsufficientData {
		return nil
	}
	var out []model.Alert
	switch p.Archetype {
	case personality.LearningOriented:
		if v.Ratio(model.CategoryEducation) < 20 {
			out = append(out, model.Alert{
				Severity: model.SeverityInfo,
				Title:    "Learning interest",
				Message:  "A learning-oriented profile with few education purchases lately. Books or puzzles may fit well.",
			})
		}
	case personality.FunSeeking:
		if v.Ratio(model.CategorySnack) > 60 {
			out = append(out, model.Alert{
				Severity: model.SeverityWarning,
				Title:    "Snack-heavy spending",
				Message:  "Most spending goes to snacks. Try fun items that last longer.",
			})
		}
	}
	if p.Source == model.SourceModel && p.Confidence < tentativeBelow {
		out = append(out, model.Alert{
			Severity: model.SeverityInfo,
			Title:    "Tentative personality",
			Message:  "The personality type is still uncertain and may change with more purchases.",
		})
	}
	return out
}
