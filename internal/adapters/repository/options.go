package repository

import (
	"time"

	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/metrics"
)

type options struct {
	metricsUpdateInterval time.Duration
	log                   logger.Logger
}

func defaultOptions() options {
	return options{metricsUpdateInterval: metrics.RefreshInterval(), log: logger.Nop()}
}

// Option configures a store.
type Option func(*options)

// WithMetricsUpdateInterval overrides metrics.RefreshInterval for the subject gauge loop.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
