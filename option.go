package attention

import (
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the service
type Option func(s *Service)

// WithConfig sets the configuration, DefaultConfig() is used otherwise
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithStore sets the state store. The service does not close a store it was given.
func WithStore(store dao.StateStore) Option {
	return func(s *Service) { s.store = store }
}

// WithLogger sets the logger, otherwise one is built from Config.Logging
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.hasLogger = true
	}
}

// WithMetricsRegisterer registers the service collectors on registerer.
// Without it collectors live in a private registry.
func WithMetricsRegisterer(registerer prometheus.Registerer) Option {
	return func(s *Service) { s.registerer = registerer }
}

// WithFs sets the storage service used by the fs store and fs feed
func WithFs(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithRedisClient shares an existing client with the redis feed
func WithRedisClient(client *goredis.Client) Option {
	return func(s *Service) { s.redisClient = client }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter, for example
// OTLP, Jaeger or Zipkin. The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
