// Package redis implements messaging.Queue on Redis Streams. Consumers read
// through a consumer group, so every process with its own group receives
// every message while consumers sharing a group split the load.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viant/attention/internal/idgen"
	"github.com/viant/attention/service/messaging"
)

const (
	fieldData    = "data"
	fieldRetries = "retries"
	fieldError   = "error"
)

// Config holds configuration for the Redis Streams queue
type Config struct {
	Addr       string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password   string        `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB         int           `json:"db" yaml:"db" mapstructure:"db"`
	Stream     string        `json:"stream" yaml:"stream" mapstructure:"stream"`
	Group      string        `json:"group" yaml:"group" mapstructure:"group"`
	Consumer   string        `json:"consumer" yaml:"consumer" mapstructure:"consumer"`
	Block      time.Duration `json:"block" yaml:"block" mapstructure:"block"`
	MaxLen     int64         `json:"maxLen" yaml:"maxLen" mapstructure:"max_len"`
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries" mapstructure:"max_retries"`
}

// DefaultConfig returns a default queue configuration
func DefaultConfig() Config {
	return Config{
		Addr:       "localhost:6379",
		Stream:     "attention:changes",
		Group:      "attention",
		Block:      time.Second,
		MaxLen:     10000,
		MaxRetries: 3,
	}
}

// DeadLetterStream returns the stream receiving messages past MaxRetries
func (c Config) DeadLetterStream() string {
	return c.Stream + ":dlq"
}

// Message implements messaging.Message for a stream entry
type Message[T any] struct {
	id        string
	payload   T
	retries   int
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
}

// ID returns the stream entry id
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the entry for the consumer group
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	return m.queue.client.XAck(context.Background(), m.queue.config.Stream, m.queue.config.Group, m.id).Err()
}

// Nack re-adds the payload with an incremented retry count, or moves it to
// the dead letter stream, then acknowledges the original entry
func (m *Message[T]) Nack(cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	ctx := context.Background()
	cfg := m.queue.config
	stream := cfg.Stream
	retries := m.retries + 1
	if retries > cfg.MaxRetries {
		stream = cfg.DeadLetterStream()
	}
	values, err := encode(&m.payload, retries)
	if err != nil {
		return err
	}
	if cause != nil {
		values[fieldError] = cause.Error()
	}
	if err := m.queue.client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("xadd %v failed: %w", stream, err)
	}
	return m.queue.client.XAck(ctx, cfg.Stream, cfg.Group, m.id).Err()
}

// Queue implements messaging.Queue on a Redis stream
type Queue[T any] struct {
	client    *redis.Client
	config    Config
	ownClient bool
	groupOnce sync.Once
	groupErr  error
}

// NewQueue connects to Redis and returns a queue on config.Stream
func NewQueue[T any](ctx context.Context, config Config) (*Queue[T], error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	ret, err := NewQueueWithClient[T](client, config)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	ret.ownClient = true
	return ret, nil
}

// NewQueueWithClient returns a queue sharing an existing client
func NewQueueWithClient[T any](client *redis.Client, config Config) (*Queue[T], error) {
	if client == nil {
		return nil, fmt.Errorf("redis client was nil")
	}
	if config.Stream == "" {
		return nil, fmt.Errorf("stream cannot be empty")
	}
	if config.Group == "" {
		config.Group = DefaultConfig().Group
	}
	if config.Consumer == "" {
		config.Consumer = idgen.WithPrefix("attention")
	}
	if config.Block <= 0 {
		config.Block = DefaultConfig().Block
	}
	return &Queue[T]{client: client, config: config}, nil
}

// Publish appends t to the stream
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return fmt.Errorf("payload was nil")
	}
	values, err := encode(t, 0)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{Stream: q.config.Stream, Values: values}
	if q.config.MaxLen > 0 {
		args.MaxLen = q.config.MaxLen
		args.Approx = true
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %v failed: %w", q.config.Stream, err)
	}
	return nil
}

// Consume blocks up to Block for the next entry of the consumer group. It
// returns a nil message when nothing arrived.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	if err := q.ensureGroup(ctx); err != nil {
		return nil, err
	}
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.config.Group,
		Consumer: q.config.Consumer,
		Streams:  []string{q.config.Stream, ">"},
		Count:    1,
		Block:    q.config.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("xreadgroup %v failed: %w", q.config.Stream, err)
	}
	for _, stream := range streams {
		for _, entry := range stream.Messages {
			message := &Message[T]{id: entry.ID, queue: q}
			if err := decode(entry.Values, message); err != nil {
				_ = q.client.XAck(ctx, q.config.Stream, q.config.Group, entry.ID).Err()
				return nil, err
			}
			return message, nil
		}
	}
	return nil, nil
}

// Close releases the client when the queue created it
func (q *Queue[T]) Close() error {
	if !q.ownClient {
		return nil
	}
	return q.client.Close()
}

func (q *Queue[T]) ensureGroup(ctx context.Context) error {
	q.groupOnce.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.config.Stream, q.config.Group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			q.groupErr = fmt.Errorf("xgroup create %v/%v failed: %w", q.config.Stream, q.config.Group, err)
		}
	})
	return q.groupErr
}

func encode[T any](t *T, retries int) (map[string]interface{}, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return map[string]interface{}{fieldData: string(data), fieldRetries: retries}, nil
}

func decode[T any](values map[string]interface{}, message *Message[T]) error {
	data, ok := values[fieldData].(string)
	if !ok {
		return fmt.Errorf("entry %v has no %v field", message.id, fieldData)
	}
	if err := json.Unmarshal([]byte(data), &message.payload); err != nil {
		return fmt.Errorf("failed to unmarshal entry %v: %w", message.id, err)
	}
	if retries, ok := values[fieldRetries].(string); ok {
		message.retries, _ = strconv.Atoi(retries)
	}
	return nil
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
