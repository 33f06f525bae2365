package alerting

import "github.com/okian/spendlens/pkg/logger"

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMaxAlerts caps the fused list.
func WithMaxAlerts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAlerts = n
		}
	}
}

// WithHeadlineThresholds replaces the headline checks.
func WithHeadlineThresholds(th HeadlineThresholds) Option {
	return func(e *Engine) { e.headline = th }
}
