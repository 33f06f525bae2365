package model

import "time"

// FindingType names an anomaly rule or the statistical outlier check.
type FindingType string

const (
	FindingSpendingSpike      FindingType = "spending_spike"
	FindingFrequencyChange    FindingType = "frequency_change"
	FindingCategoryShift      FindingType = "category_shift"
	FindingImpulseBuying      FindingType = "impulse_buying"
	FindingTimePatternShift   FindingType = "time_pattern_shift"
	FindingEmotionalShopping  FindingType = "emotional_shopping"
	FindingStatisticalOutlier FindingType = "statistical_outlier"
)

// AnomalyFinding is one deviation detected for a subject.
type AnomalyFinding struct {
	Type       FindingType        `json:"type"`
	Severity   Severity           `json:"severity"`
	Confidence float64            `json:"confidence"`
	Message    string             `json:"message"`
	Details    map[string]float64 `json:"details,omitempty"`
	Category   Category           `json:"category,omitempty"`
	DetectedAt time.Time          `json:"detected_at"`
}

// Alert is a fused, human-readable notification.
type Alert struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
}
