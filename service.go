package attention

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/attention/internal/metrics"
	"github.com/viant/attention/progress"
	"github.com/viant/attention/runtime/mailbox"
	"github.com/viant/attention/service/allocator"
	"github.com/viant/attention/service/analytics"
	"github.com/viant/attention/service/dao"
	fsstore "github.com/viant/attention/service/dao/state/fs"
	"github.com/viant/attention/service/dao/state/memory"
	"github.com/viant/attention/service/dao/state/sqlite"
	"github.com/viant/attention/service/feed"
	"github.com/viant/attention/service/filter"
	"github.com/viant/attention/service/notifier"
	"github.com/viant/attention/service/queue"
	"github.com/viant/attention/service/tuner"
	"github.com/viant/attention/tracing"
)

// Service is the attention allocation facade
type Service struct {
	config      *Config
	logger      zerolog.Logger
	hasLogger   bool
	registerer  prometheus.Registerer
	metrics     *metrics.Metrics
	fs          afs.Service
	redisClient *goredis.Client

	store     dao.StateStore
	ownStore  dao.StateStore
	mailbox   *mailbox.Dispatcher
	feed      *feed.Feed
	progress  *progress.Registry
	allocator *allocator.Service
	queue     *queue.Service
	filter    *filter.Service
	notifier  *notifier.Service
	analytics *analytics.Service
	tuner     *tuner.Service

	cancel   context.CancelFunc
	mu       sync.Mutex
	monitors map[string]string
	closed   bool
}

// New creates a service. Without options it runs on an in-memory store and
// feed with default configuration.
func New(options ...Option) (*Service, error) {
	s := &Service{monitors: make(map[string]string)}
	for _, opt := range options {
		opt(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !s.hasLogger {
		s.logger = s.config.Logger()
	}
	if s.config.Tracing.Enabled {
		if err := tracing.Init(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.config.Tracing.OutputFile); err != nil {
			s.logger.Warn().Err(err).Msg("failed to initialise tracing")
		}
	}
	if err := s.init(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.metrics = metrics.New(s.registerer)
	s.progress = progress.NewRegistry(nil)
	s.mailbox = mailbox.New(s.config.Mailbox)

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store, s.ownStore = store, store
	}
	if err := s.store.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	var err error
	if s.feed, err = feed.New(ctx, s.config.Feed,
		feed.WithLogger(s.logger),
		feed.WithFs(s.fs),
		feed.WithRedisClient(s.redisClient)); err != nil {
		return fmt.Errorf("failed to create change feed: %w", err)
	}
	store := feed.Observe(s.store, s.feed, s.config.Feed.PublishTimeout, s.logger)

	timeout := s.config.Allocator.OperationTimeout
	retries := s.config.Allocator.ConflictRetries
	if s.allocator, err = allocator.New(
		allocator.WithConfig(s.config.Allocator),
		allocator.WithLoadConfig(s.config.Load),
		allocator.WithStore(store),
		allocator.WithMailbox(s.mailbox),
		allocator.WithLogger(s.logger),
		allocator.WithMetrics(s.metrics)); err != nil {
		return err
	}
	if s.queue, err = queue.New(
		queue.WithStore(store),
		queue.WithMailbox(s.mailbox),
		queue.WithLogger(s.logger),
		queue.WithMetrics(s.metrics),
		queue.WithOperationTimeout(timeout),
		queue.WithConflictRetries(retries)); err != nil {
		return err
	}
	if s.filter, err = filter.New(
		filter.WithStore(store),
		filter.WithMailbox(s.mailbox),
		filter.WithLogger(s.logger),
		filter.WithMetrics(s.metrics),
		filter.WithOperationTimeout(timeout),
		filter.WithConflictRetries(retries)); err != nil {
		return err
	}
	if s.notifier, err = notifier.New(
		notifier.WithWatcher(s.feed),
		notifier.WithConfig(s.config.Notifier),
		notifier.WithLogger(s.logger),
		notifier.WithMetrics(s.metrics)); err != nil {
		return err
	}
	if s.analytics, err = analytics.New(
		analytics.WithStore(s.store),
		analytics.WithConfig(s.config.Analytics),
		analytics.WithProgress(s.progress),
		analytics.WithLogger(s.logger),
		analytics.WithOperationTimeout(timeout)); err != nil {
		return err
	}
	if s.tuner, err = tuner.New(
		tuner.WithConfig(s.config.Tuner),
		tuner.WithStore(s.store),
		tuner.WithAnalyzer(s.analytics),
		tuner.WithAdapter(s.filter),
		tuner.WithLogger(s.logger)); err != nil {
		return err
	}
	if s.config.Tuner.Enabled {
		if err = s.tuner.Start(); err != nil {
			return err
		}
	}
	s.logger.Info().Str("store", s.config.Store.Type).Str("feed", string(s.config.Feed.Vendor)).Msg("attention service started")
	return nil
}

func (s *Service) openStore(ctx context.Context) (dao.StateStore, error) {
	switch s.config.Store.Type {
	case StoreFS:
		opts := []fsstore.Option{fsstore.WithLogger(s.logger)}
		if s.fs != nil {
			opts = append(opts, fsstore.WithFs(s.fs))
		}
		return fsstore.New(s.config.Store.BasePath, opts...)
	case StoreSQLite:
		return sqlite.New(ctx, s.config.Store.DSN)
	case StoreMemory, "":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unsupported store type: %s", s.config.Store.Type)
}

// Config returns the service configuration
func (s *Service) Config() *Config {
	return s.config
}

// Metrics returns the service collectors
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// Store returns the state store
func (s *Service) Store() dao.StateStore {
	return s.store
}

// Close stops monitoring, the tuner and the change feed, and closes a store
// the service opened itself. It is safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if s.tuner != nil {
		s.tuner.Stop()
	}
	if s.notifier != nil {
		errs = append(errs, s.notifier.Close())
	}
	if s.feed != nil {
		errs = append(errs, s.feed.Close())
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.mailbox != nil {
		errs = append(errs, s.mailbox.Close())
	}
	if s.ownStore != nil {
		errs = append(errs, s.ownStore.Close())
	}
	return errors.Join(errs...)
}
