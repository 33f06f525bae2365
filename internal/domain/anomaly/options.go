package anomaly

import (
	"time"

	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/pkg/logger"
)

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithThresholds replaces the rule thresholds.
func WithThresholds(t Thresholds) Option {
	return func(d *Detector) { d.th = t }
}

// WithMaxFindings caps the findings in a report.
func WithMaxFindings(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.maxFindings = n
		}
	}
}

// WithSensitiveCategory sets the category watched by the emotional
// shopping composite.
func WithSensitiveCategory(c model.Category) Option {
	return func(d *Detector) { d.sensitive = model.ParseCategory(string(c)) }
}

// WithClock sets the time stamped on findings.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}
