package features

import "time"

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock replaces time.Now as the reference for window boundaries.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) {
		if now != nil {
			x.now = now
		}
	}
}

// WithDefaultWindowDays sets the window used when Extract gets a non-positive length.
func WithDefaultWindowDays(days int) Option {
	return func(x *Extractor) {
		if days > 0 {
			x.windowDays = days
		}
	}
}
