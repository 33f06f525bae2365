package anomaly

import (
	"fmt"

	"github.com/okian/spendlens/internal/domain/model"
)

// Status tells an assessed report from one that had nothing to assess.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

// Risk is the overall level of a report.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Report is the result of one detection.
type Report struct {
	Status          Status                 `json:"status"`
	Findings        []model.AnomalyFinding `json:"findings"`
	RiskLevel       Risk                   `json:"risk_level"`
	Summary         string                 `json:"summary"`
	Recommendations []string               `json:"recommendations"`
	// Statistical is true when an outlier model scored the subject.
	Statistical bool     `json:"statistical"`
	Decision    *float64 `json:"outlier_decision,omitempty"`
}

// Detected reports whether any finding survived prioritization.
func (r Report) Detected() bool { return len(r.Findings) > 0 }

const generalRecommendation = "Review purchase patterns together on a regular basis."

var recommendationTable = map[model.FindingType][]string{
	model.FindingSpendingSpike: {
		"Revisit the spending limit.",
		"Plan upcoming purchases together.",
	},
	model.FindingImpulseBuying: {
		"Pause for a moment before each purchase.",
		"Make a shopping list ahead of time.",
	},
	model.FindingEmotionalShopping: {
		"Check in on how things have been going emotionally.",
		"Look for recent stress or changes at home or school.",
		"Find other ways to express feelings than buying.",
	},
	model.FindingCategoryShift: {
		"Talk about any new interests.",
		"Rebalance spending across categories.",
	},
	model.FindingFrequencyChange: {
		"Find out what changed the purchase rhythm.",
		"Set up a regular purchase schedule.",
	},
}

func riskOf(findings []model.AnomalyFinding) Risk {
	risk := RiskLow
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityAlert:
			return RiskHigh
		case model.SeverityWarning:
			risk = RiskMedium
		}
	}
	return risk
}

func summarize(findings []model.AnomalyFinding) string {
	if len(findings) == 0 {
		return "Purchase pattern looks normal."
	}
	var alerts, warnings int
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityAlert:
			alerts++
		case model.SeverityWarning:
			warnings++
		}
	}
	switch {
	case alerts > 0:
		return fmt.Sprintf("%d pattern(s) need attention.", alerts)
	case warnings > 0:
		return fmt.Sprintf("%d change(s) in purchase pattern observed.", warnings)
	default:
		return "Some changes, but within the normal range."
	}
}

// recommend collects the table entries of every finding type in first-seen
// order without repeats.
func recommend(findings []model.AnomalyFinding) []string {
	out := []string{}
	if len(findings) == 0 {
		return out
	}
	seen := make(map[string]struct{})
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, f := range findings {
		for _, r := range recommendationTable[f.Type] {
			add(r)
		}
	}
	add(generalRecommendation)
	return out
}
