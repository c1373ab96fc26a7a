package event

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/viant/afs"
	"github.com/viant/attention/service/messaging/fs"
	"github.com/viant/attention/service/messaging/memory"
	"github.com/viant/attention/service/messaging/redis"
)

// Option configures the event service
type Option func(s *Service)

// WithNewFsQueueConfig sets the file system queue configuration per queue name
func WithNewFsQueueConfig(newConfig func(name string) fs.Config) Option {
	return func(s *Service) {
		s.fsNewQueueConfig = newConfig
	}
}

// WithNewMemoryQueueConfig sets the memory queue configuration per queue name
func WithNewMemoryQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memNewQueueConfig = newConfig
	}
}

// WithNewRedisQueueConfig sets the redis queue configuration per queue name
func WithNewRedisQueueConfig(newConfig func(name string) redis.Config) Option {
	return func(s *Service) {
		s.redisNewQueueConfig = newConfig
	}
}

// WithRedisClient shares an existing redis client across queues
func WithRedisClient(client *goredis.Client) Option {
	return func(s *Service) {
		s.redisClient = client
	}
}

// WithFs sets the storage service used by fs queues
func WithFs(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithPollInterval sets the listener wait after an empty consume
func WithPollInterval(interval time.Duration) Option {
	return func(s *Service) {
		s.pollInterval = interval
	}
}
