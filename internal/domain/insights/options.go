package insights

import "github.com/okian/spendlens/pkg/logger"

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithThresholds replaces the pattern cut-offs.
func WithThresholds(th Thresholds) Option {
	return func(a *Analyzer) { a.th = th }
}
