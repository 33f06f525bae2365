package service

import (
	"time"

	"github.com/okian/spendlens/internal/adapters/artifacts"
	"github.com/okian/spendlens/internal/adapters/repository"
	"github.com/okian/spendlens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now for windowing and model stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEventStore uses store instead of opening the configured backend.
// The service closes it on Stop.
func WithEventStore(store repository.Store) Option {
	return func(s *Service) {
		s.events = store
	}
}

// WithModelStore uses store instead of opening the configured backend.
// The service closes it on Stop.
func WithModelStore(store artifacts.Store) Option {
	return func(s *Service) {
		s.models = store
	}
}
