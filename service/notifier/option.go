package notifier

import (
	"github.com/rs/zerolog"
	"github.com/viant/attention/internal/metrics"
)

// Option configures the notifier
type Option func(s *Service)

// WithWatcher sets the change feed
func WithWatcher(watcher Watcher) Option {
	return func(s *Service) { s.watcher = watcher }
}

// WithConfig sets the configuration
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}
