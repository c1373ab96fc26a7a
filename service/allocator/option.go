package allocator

import (
	"github.com/rs/zerolog"
	"github.com/viant/attention/internal/metrics"
	"github.com/viant/attention/model/load"
	"github.com/viant/attention/runtime/mailbox"
	"github.com/viant/attention/service/dao"
)

// Option configures the allocator service
type Option func(s *Service)

// WithConfig sets the allocator configuration
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLoadConfig sets the load model configuration
func WithLoadConfig(config load.Config) Option {
	return func(s *Service) { s.loadConfig = config }
}

// WithStore sets the state store
func WithStore(store dao.StateStore) Option {
	return func(s *Service) { s.store = store }
}

// WithMailbox sets the per-agent dispatcher
func WithMailbox(dispatcher *mailbox.Dispatcher) Option {
	return func(s *Service) { s.mailbox = dispatcher }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}
