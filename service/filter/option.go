package filter

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/attention/internal/metrics"
	"github.com/viant/attention/runtime/mailbox"
	"github.com/viant/attention/service/dao"
)

// Option configures the filter service
type Option func(s *Service)

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

// WithOperationTimeout bounds store calls when the caller has no deadline
func WithOperationTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.timeout = timeout }
}

// WithConflictRetries sets how many times a write is attempted on version conflict
func WithConflictRetries(retries int) Option {
	return func(s *Service) { s.retries = retries }
}
