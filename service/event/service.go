package event

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/viant/afs"
	"github.com/viant/attention/service/messaging"
	"github.com/viant/attention/service/messaging/fs"
	"github.com/viant/attention/service/messaging/memory"
	"github.com/viant/attention/service/messaging/redis"
)

// Service creates typed publishers and listeners on one messaging vendor
type Service struct {
	typedPublishers     map[reflect.Type]any
	typedListeners      map[reflect.Type]any
	mux                 *sync.RWMutex
	queueVendor         messaging.Vendor
	fs                  afs.Service
	redisClient         *goredis.Client
	ownRedisClient      bool
	pollInterval        time.Duration
	fsNewQueueConfig    func(name string) fs.Config
	memNewQueueConfig   func(name string) memory.Config
	redisNewQueueConfig func(name string) redis.Config
}

// New creates an event service for queueVendor
func New(queueVendor messaging.Vendor, opts ...Option) (*Service, error) {
	ret := &Service{
		queueVendor:     queueVendor,
		typedPublishers: make(map[reflect.Type]any),
		typedListeners:  make(map[reflect.Type]any),
		mux:             &sync.RWMutex{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	switch queueVendor {
	case messaging.VendorMemory:
		if ret.memNewQueueConfig == nil {
			ret.memNewQueueConfig = func(string) memory.Config { return memory.DefaultConfig() }
		}
	case messaging.VendorFS:
		if ret.fsNewQueueConfig == nil {
			return nil, fmt.Errorf("fs queue vendor requires fsNewQueueConfig")
		}
		if ret.fs == nil {
			ret.fs = afs.New()
		}
	case messaging.VendorRedis:
		if ret.redisNewQueueConfig == nil {
			return nil, fmt.Errorf("redis queue vendor requires redisNewQueueConfig")
		}
		if ret.redisClient == nil {
			cfg := ret.redisNewQueueConfig("")
			ret.redisClient = goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
			ret.ownRedisClient = true
		}
	default:
		return nil, fmt.Errorf("unsupported queue vendor: %s", queueVendor)
	}
	return ret, nil
}

// Vendor returns the messaging vendor
func (s *Service) Vendor() messaging.Vendor {
	return s.queueVendor
}

// Close stops listeners and releases the redis client the service created
func (s *Service) Close() error {
	s.mux.Lock()
	listeners := s.typedListeners
	s.typedListeners = make(map[reflect.Type]any)
	s.mux.Unlock()
	for _, listener := range listeners {
		if stopper, ok := listener.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}
	if s.ownRedisClient && s.redisClient != nil {
		return s.redisClient.Close()
	}
	return nil
}

// QueueOf creates a queue named name on the service vendor
func QueueOf[T any](s *Service, name string) (messaging.Queue[T], error) {
	switch s.queueVendor {
	case messaging.VendorFS:
		return fs.NewQueue[T](s.fs, s.fsNewQueueConfig(name))
	case messaging.VendorMemory:
		return memory.NewQueue[T](s.memNewQueueConfig(name)), nil
	case messaging.VendorRedis:
		return redis.NewQueueWithClient[T](s.redisClient, s.redisNewQueueConfig(name))
	}
	return nil, fmt.Errorf("unsupported queue vendor: %s", s.queueVendor)
}

func keyOf[T any]() reflect.Type {
	rType := reflect.TypeOf((*T)(nil)).Elem()
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// QueueName returns the queue name used for payload type T
func QueueName[T any]() string {
	return path.Base(keyOf[T]().String())
}

// SetListenerOf replaces the listener of payload type T
func SetListenerOf[T any](ctx context.Context, s *Service, handler func(*Event[T])) error {
	key := keyOf[T]()
	publisher, err := PublisherOf[T](s)
	if err != nil {
		return err
	}
	listener := NewListener[T](publisher, handler, s.pollInterval)
	s.mux.Lock()
	previous, ok := s.typedListeners[key]
	s.typedListeners[key] = listener
	s.mux.Unlock()
	if ok {
		previous.(*Listener[T]).Stop()
	}
	listener.Start(ctx)
	return nil
}

// PublisherOf returns the publisher of payload type T
func PublisherOf[T any](s *Service) (*Publisher[T], error) {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T]), nil
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.typedPublishers[key]; ok {
		return ret.(*Publisher[T]), nil
	}
	queue, err := QueueOf[Event[T]](s, QueueName[T]())
	if err != nil {
		return nil, err
	}
	publisher := NewPublisher[T](queue)
	s.typedPublishers[key] = publisher
	return publisher, nil
}
