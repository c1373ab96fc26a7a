package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
	"github.com/viant/attention/internal/clock"
	"github.com/viant/attention/internal/idgen"
	"github.com/viant/attention/service/messaging"
)

// MessageState represents the state of a message in the filesystem queue
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateProcessing MessageState = "processing"
	MessageStateCompleted  MessageState = "completed"
	MessageStateFailed     MessageState = "failed"
)

// Message implements messaging.Message for the filesystem queue
type Message[T any] struct {
	ID        string       `json:"id"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Retries   int          `json:"retries"`

	name      string
	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack acknowledges that the message was processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.ID)
	}
	m.processed = true
	m.State = MessageStateCompleted
	m.UpdatedAt = clock.Now()
	return m.queue.complete(context.Background(), m)
}

// Nack moves the message to the failed directory for a later retry, or to the
// dead letter directory once MaxRetries is exceeded
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.ID)
	}
	m.processed = true
	m.State = MessageStateFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = clock.Now()
	return m.queue.fail(context.Background(), m)
}

// Config holds configuration for the filesystem queue
type Config struct {
	BasePath      string        `json:"basePath" yaml:"basePath" mapstructure:"base_path"`
	MaxRetries    int           `json:"maxRetries" yaml:"maxRetries" mapstructure:"max_retries"`
	RetryDelay    time.Duration `json:"retryDelay" yaml:"retryDelay" mapstructure:"retry_delay"`
	KeepCompleted bool          `json:"keepCompleted" yaml:"keepCompleted" mapstructure:"keep_completed"`
}

// DefaultConfig returns a default queue configuration
func DefaultConfig() Config {
	return Config{
		BasePath:   "/tmp/attention/queue",
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Queue implements a filesystem-based messaging.Queue. Messages are files
// named by creation time so listing order is publishing order.
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingDir    string
	processingDir string
	completedDir  string
	failedDir     string
	dlqDir        string
	mu            sync.Mutex
}

// NewQueue creates a new filesystem-based queue
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    path.Join(config.BasePath, "pending"),
		processingDir: path.Join(config.BasePath, "processing"),
		completedDir:  path.Join(config.BasePath, "completed"),
		failedDir:     path.Join(config.BasePath, "failed"),
		dlqDir:        path.Join(config.BasePath, "dlq"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.processingDir, q.completedDir, q.failedDir, q.dlqDir} {
		if exists, _ := fs.Exists(ctx, dir); exists {
			continue
		}
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// Publish writes a new message to the pending directory
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return fmt.Errorf("payload was nil")
	}
	now := clock.Now()
	message := &Message[T]{
		ID:        idgen.New(),
		Data:      *t,
		State:     MessageStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	message.name = fmt.Sprintf("%020d_%s.json", now.UnixNano(), message.ID)
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.upload(ctx, path.Join(q.pendingDir, message.name), data)
}

// Consume claims the oldest retry-eligible failed message, or else the oldest
// pending one. It returns a nil message when nothing is available.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	message, err := q.claim(ctx, q.failedDir, true)
	if err == nil && message == nil {
		message, err = q.claim(ctx, q.pendingDir, false)
	}
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, nil
	}
	return message, nil
}

func (q *Queue[T]) claim(ctx context.Context, dir string, retry bool) (*Message[T], error) {
	objects, err := q.list(ctx, dir)
	if err != nil {
		return nil, err
	}
	for _, obj := range objects {
		message, err := q.read(ctx, obj.URL())
		if err != nil {
			_ = q.fs.Move(ctx, obj.URL(), path.Join(q.dlqDir, "invalid-"+obj.Name()))
			return nil, err
		}
		if retry && clock.Now().Sub(message.UpdatedAt) < q.config.RetryDelay {
			continue
		}
		message.name = obj.Name()
		message.queue = q
		message.State = MessageStateProcessing
		message.UpdatedAt = clock.Now()
		data, err := json.Marshal(message)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message: %w", err)
		}
		if err := q.upload(ctx, path.Join(q.processingDir, message.name), data); err != nil {
			return nil, fmt.Errorf("failed to move message to processing directory: %w", err)
		}
		if err := q.fs.Delete(ctx, obj.URL()); err != nil {
			return nil, fmt.Errorf("failed to delete claimed message: %w", err)
		}
		return message, nil
	}
	return nil, nil
}

func (q *Queue[T]) complete(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.config.KeepCompleted {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal completed message: %w", err)
		}
		if err := q.upload(ctx, path.Join(q.completedDir, m.name), data); err != nil {
			return fmt.Errorf("failed to write message to completed directory: %w", err)
		}
	}
	return q.release(ctx, m)
}

func (q *Queue[T]) fail(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal failed message: %w", err)
	}
	dir := q.failedDir
	if m.Retries > q.config.MaxRetries {
		dir = q.dlqDir
	}
	if err := q.upload(ctx, path.Join(dir, m.name), data); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", dir, err)
	}
	return q.release(ctx, m)
}

func (q *Queue[T]) release(ctx context.Context, m *Message[T]) error {
	processing := path.Join(q.processingDir, m.name)
	if exists, _ := q.fs.Exists(ctx, processing); !exists {
		return nil
	}
	if err := q.fs.Delete(ctx, processing); err != nil {
		return fmt.Errorf("failed to delete message from processing directory: %w", err)
	}
	return nil
}

// Count returns the number of messages in a state directory
func (q *Queue[T]) Count(ctx context.Context, state MessageState) (int, error) {
	dirs := map[MessageState]string{
		MessageStatePending:    q.pendingDir,
		MessageStateProcessing: q.processingDir,
		MessageStateCompleted:  q.completedDir,
		MessageStateFailed:     q.failedDir,
	}
	dir, ok := dirs[state]
	if !ok {
		dir = q.dlqDir
	}
	objects, err := q.list(ctx, dir)
	return len(objects), err
}

func (q *Queue[T]) list(ctx context.Context, dir string) ([]storage.Object, error) {
	objects, err := q.fs.List(ctx, dir, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var ret []storage.Object
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			ret = append(ret, obj)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name() < ret[j].Name() })
	return ret, nil
}

func (q *Queue[T]) upload(ctx context.Context, URL string, data []byte) error {
	return q.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewBuffer(data))
}

func (q *Queue[T]) read(ctx context.Context, URL string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", URL, err)
	}
	var message Message[T]
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", URL, err)
	}
	return &message, nil
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
