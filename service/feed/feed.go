package feed

import (
	"context"
	"fmt"
	"path"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/afs"
	"github.com/viant/attention/internal/idgen"
	"github.com/viant/attention/model"
	"github.com/viant/attention/service/dao/criteria"
	"github.com/viant/attention/service/event"
	"github.com/viant/attention/service/messaging/fs"
	"github.com/viant/attention/service/messaging/memory"
	"github.com/viant/attention/service/messaging/redis"
)

// Publisher publishes state change events
type Publisher interface {
	Publish(ctx context.Context, e *event.Event[model.State]) error
}

// Option configures a feed
type Option func(f *Feed)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Feed) { f.logger = logger }
}

// WithRedisClient shares an existing client with the redis transport
func WithRedisClient(client *goredis.Client) Option {
	return func(f *Feed) { f.redisClient = client }
}

// WithFs sets the storage service of the fs transport
func WithFs(fs afs.Service) Option {
	return func(f *Feed) { f.fs = fs }
}

// Feed is the change feed: it publishes events to the transport and fans
// consumed events out to watchers
type Feed struct {
	config      Config
	logger      zerolog.Logger
	fs          afs.Service
	redisClient *goredis.Client
	events      *event.Service
	publisher   *event.Publisher[model.State]
	mu          sync.RWMutex
	streams     map[string]*Stream
	closed      bool
}

// New creates a feed and starts consuming its transport
func New(ctx context.Context, config Config, options ...Option) (*Feed, error) {
	defaults := DefaultConfig()
	if config.Vendor == "" {
		config.Vendor = defaults.Vendor
	}
	if config.Buffer <= 0 {
		config.Buffer = defaults.Buffer
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaults.PublishTimeout
	}
	f := &Feed{
		config:  config,
		logger:  log.Logger,
		streams: make(map[string]*Stream),
	}
	for _, opt := range options {
		opt(f)
	}
	f.logger = f.logger.With().Str("service", "feed").Str("vendor", string(config.Vendor)).Logger()
	events, err := event.New(config.Vendor,
		event.WithPollInterval(config.PollInterval),
		event.WithFs(f.fs),
		event.WithRedisClient(f.redisClient),
		event.WithNewMemoryQueueConfig(func(string) memory.Config { return config.Memory }),
		event.WithNewFsQueueConfig(func(name string) fs.Config {
			cfg := config.FS
			cfg.BasePath = path.Join(cfg.BasePath, name)
			return cfg
		}),
		event.WithNewRedisQueueConfig(func(string) redis.Config { return config.Redis }),
	)
	if err != nil {
		return nil, err
	}
	f.events = events
	if f.publisher, err = event.PublisherOf[model.State](events); err != nil {
		_ = events.Close()
		return nil, err
	}
	if err = event.SetListenerOf[model.State](ctx, events, f.dispatch); err != nil {
		_ = events.Close()
		return nil, err
	}
	return f, nil
}

// Publish publishes a change event
func (f *Feed) Publish(ctx context.Context, e *event.Event[model.State]) error {
	if e == nil || e.Context == nil {
		return fmt.Errorf("feed: event context was nil")
	}
	return f.publisher.Publish(ctx, e)
}

// Watch returns a stream of events whose state matches query. A nil query
// matches every event. The stream closes when ctx is done or Close is called.
func (f *Feed) Watch(ctx context.Context, query *criteria.Query) (*Stream, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	stream := &Stream{
		id:     idgen.WithPrefix("watch"),
		query:  query,
		events: make(chan *event.Event[model.State], f.config.Buffer),
		feed:   f,
		done:   make(chan struct{}),
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, fmt.Errorf("feed: closed")
	}
	f.streams[stream.id] = stream
	f.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
			stream.Close()
		case <-stream.done:
		}
	}()
	return stream, nil
}

// Watchers returns the number of open streams
func (f *Feed) Watchers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.streams)
}

// Close closes every stream and stops consuming
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	streams := make([]*Stream, 0, len(f.streams))
	for _, stream := range f.streams {
		streams = append(streams, stream)
	}
	f.mu.Unlock()
	err := f.events.Close()
	for _, stream := range streams {
		stream.Close()
	}
	return err
}

func (f *Feed) dispatch(e *event.Event[model.State]) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, stream := range f.streams {
		if !stream.query.Match(&e.Data) {
			continue
		}
		select {
		case stream.events <- e:
		default:
			f.logger.Warn().Str("stream", stream.id).Str("agent", e.Context.AgentID).
				Int64("version", e.Context.Version).Msg("watcher buffer full, event dropped")
		}
	}
}

func (f *Feed) remove(stream *Stream) {
	f.mu.Lock()
	delete(f.streams, stream.id)
	close(stream.events)
	f.mu.Unlock()
}

// Stream delivers matching change events
type Stream struct {
	id     string
	query  *criteria.Query
	events chan *event.Event[model.State]
	feed   *Feed
	done   chan struct{}
	once   sync.Once
}

// ID returns the stream id
func (s *Stream) ID() string {
	return s.id
}

// Events returns the event channel. It is closed with the stream.
func (s *Stream) Events() <-chan *event.Event[model.State] {
	return s.events
}

// Close stops delivery. It is idempotent.
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.done)
		s.feed.remove(s)
	})
}
