package anomaly

// Thresholds holds the rule cut-offs. Changes are in percent, shifts in
// percentage points, impulse in [0,1], intervals in hours.
type Thresholds struct {
	SpendingSpike    float64
	FrequencyChange  float64
	CategoryShift    float64
	ImpulseScore     float64
	TimePatternShift float64

	// Emotional shopping composite.
	EmotionalImpulse        float64
	EmotionalSpendChange    float64
	EmotionalSensitiveShift float64
	EmotionalMinInterval    float64
	EmotionalMinSignals     int

	// OutlierScale turns |decision| into a confidence.
	OutlierScale float64
}

// DefaultThresholds returns the stock rule set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpendingSpike:    200,
		FrequencyChange:  150,
		CategoryShift:    30,
		ImpulseScore:     0.3,
		TimePatternShift: 100,

		EmotionalImpulse:        0.25,
		EmotionalSpendChange:    150,
		EmotionalSensitiveShift: 20,
		EmotionalMinInterval:    2,
		EmotionalMinSignals:     2,

		OutlierScale: 0.3,
	}
}
