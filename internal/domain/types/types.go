// Package types contains the payloads shared by the service and its adapters.
package types

import (
	"math"
	"time"

	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/insights"
	"github.com/okian/spendlens/internal/domain/model"
)

// Subject is one row of the subject listing.
type Subject struct {
	SubjectID string `json:"subject_id"`
	Events    int    `json:"events"`
}

// Scores are headline numbers in 0..100.
type Scores struct {
	DataQuality           int `json:"data_quality"`
	PersonalityConfidence int `json:"personality_confidence"`
	Safety                int `json:"safety_score"`
}

// FeatureSummary is the feature part of an analysis.
type FeatureSummary struct {
	WindowDays      int              `json:"window_days"`
	Recent          features.Vector  `json:"recent"`
	Historical      features.Vector  `json:"historical"`
	Change          *features.Change `json:"change,omitempty"`
	RecentCount     int              `json:"recent_count"`
	HistoricalCount int              `json:"historical_count"`
}

// ModelVersions names the models an analysis ran with; empty means rules.
type ModelVersions struct {
	Personality string `json:"personality,omitempty"`
	Anomaly     string `json:"anomaly,omitempty"`
}

// Analysis is the full result for one subject.
type Analysis struct {
	SubjectID        string                   `json:"subject_id"`
	GeneratedAt      time.Time                `json:"generated_at"`
	InsufficientData bool                     `json:"insufficient_data"`
	ExcludedEvents   int                      `json:"excluded_events"`
	Features         FeatureSummary           `json:"features"`
	Personality      model.PersonalityProfile `json:"personality"`
	Anomalies        anomaly.Report           `json:"anomalies"`
	Alerts           []model.Alert            `json:"alerts"`
	Scores           Scores                   `json:"scores"`
	Insights         insights.Report          `json:"insights"`
	Models           ModelVersions            `json:"models"`
}

const fullQualityEvents = 20

// DataQuality is min(events/20, 1).
func DataQuality(events int) float64 {
	return math.Min(float64(events)/fullQualityEvents, 1)
}

// Safety maps a risk level to a score; unknown levels count as low risk.
func Safety(r anomaly.Risk) float64 {
	switch r {
	case anomaly.RiskHigh:
		return 0.3
	case anomaly.RiskMedium:
		return 0.6
	default:
		return 0.9
	}
}

// NewScores rounds the component scores to percentages.
func NewScores(events int, confidence float64, risk anomaly.Risk) Scores {
	return Scores{
		DataQuality:           pct(DataQuality(events)),
		PersonalityConfidence: pct(confidence),
		Safety:                pct(Safety(risk)),
	}
}

// Summarize copies the vectors and counts out of w.
func Summarize(w features.Windows) FeatureSummary {
	return FeatureSummary{
		WindowDays:      w.WindowDays,
		Recent:          w.Recent,
		Historical:      w.Historical,
		Change:          w.Change,
		RecentCount:     w.RecentCount,
		HistoricalCount: w.HistoricalCount,
	}
}

func pct(x float64) int {
	return int(math.Round(x * 100))
}
