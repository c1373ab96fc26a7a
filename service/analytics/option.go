package analytics

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/attention/progress"
	"github.com/viant/attention/service/dao"
)

// Option configures the analytics service
type Option func(s *Service)

// WithStore sets the state store
func WithStore(store dao.StateStore) Option {
	return func(s *Service) { s.store = store }
}

// WithConfig sets the configuration
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithProgress sets the in-process counters reported by Stats
func WithProgress(registry *progress.Registry) Option {
	return func(s *Service) { s.progress = registry }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithOperationTimeout bounds store calls when the caller has no deadline
func WithOperationTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.timeout = timeout }
}
