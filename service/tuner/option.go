package tuner

import (
	"github.com/rs/zerolog"
	"github.com/viant/attention/service/dao"
)

// Option configures the tuner
type Option func(s *Service)

// WithConfig sets the configuration
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithStore sets the state store used to find adaptive agents
func WithStore(store dao.StateStore) Option {
	return func(s *Service) { s.store = store }
}

// WithAnalyzer sets the analytics service
func WithAnalyzer(analyzer Analyzer) Option {
	return func(s *Service) { s.analyzer = analyzer }
}

// WithAdapter sets the filter service
func WithAdapter(adapter Adapter) Option {
	return func(s *Service) { s.adapter = adapter }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}
