package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned for jobs submitted to, or stranded in, a closed dispatcher.
var ErrClosed = errors.New("mailbox: dispatcher closed")

// Job is a unit of work run inside a key's mailbox.
type Job func(ctx context.Context) error

// Config represents mailbox configuration
type Config struct {
	// Buffer is the per-key channel capacity
	Buffer int `json:"buffer" yaml:"buffer" mapstructure:"buffer"`

	// IdleTimeout is how long a worker waits for a job before exiting
	IdleTimeout time.Duration `json:"idleTimeout" yaml:"idleTimeout" mapstructure:"idle_timeout"`
}

// DefaultConfig returns the default mailbox configuration
func DefaultConfig() Config {
	return Config{
		Buffer:      64,
		IdleTimeout: time.Minute,
	}
}

type envelope struct {
	ctx  context.Context
	job  Job
	done chan error
}

type box struct {
	key     string
	jobs    chan *envelope
	pending int
	exited  chan struct{}
}

// Dispatcher routes jobs to per-key workers.
type Dispatcher struct {
	config Config
	mu     sync.Mutex
	boxes  map[string]*box
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a dispatcher.
func New(config Config) *Dispatcher {
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	return &Dispatcher{
		config: config,
		boxes:  make(map[string]*box),
		done:   make(chan struct{}),
	}
}

// Do runs job in key's mailbox and waits for its result. A job whose context
// is done before it starts is not run.
func (d *Dispatcher) Do(ctx context.Context, key string, job Job) error {
	b, err := d.acquire(key)
	if err != nil {
		return err
	}
	e := &envelope{ctx: ctx, job: job, done: make(chan error, 1)}
	select {
	case b.jobs <- e:
	case <-ctx.Done():
		d.release(b)
		return ctx.Err()
	case <-b.exited:
		d.release(b)
		return ErrClosed
	}
	select {
	case err := <-e.done:
		return err
	case <-ctx.Done():
		// a job still queued is skipped by execute once dequeued
		select {
		case err := <-e.done:
			return err
		default:
			return ctx.Err()
		}
	case <-b.exited:
		select {
		case err := <-e.done:
			return err
		default:
			return ErrClosed
		}
	}
}

// Len returns the number of live workers.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.boxes)
}

// Close stops all workers once their current job completes. Queued jobs fail with ErrClosed.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) acquire(key string) (*box, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	b, ok := d.boxes[key]
	if !ok {
		b = &box{key: key, jobs: make(chan *envelope, d.config.Buffer), exited: make(chan struct{})}
		d.boxes[key] = b
		d.wg.Add(1)
		go d.run(b)
	}
	b.pending++
	return b, nil
}

func (d *Dispatcher) release(b *box) {
	d.mu.Lock()
	b.pending--
	d.mu.Unlock()
}

func (d *Dispatcher) run(b *box) {
	defer d.wg.Done()
	defer close(b.exited)
	timer := time.NewTimer(d.config.IdleTimeout)
	defer timer.Stop()
	for {
		select {
		case e := <-b.jobs:
			e.done <- d.execute(e)
			d.release(b)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.config.IdleTimeout)
		case <-timer.C:
			d.mu.Lock()
			if b.pending == 0 {
				delete(d.boxes, b.key)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(d.config.IdleTimeout)
		case <-d.done:
			d.mu.Lock()
			delete(d.boxes, b.key)
			d.mu.Unlock()
			for {
				select {
				case e := <-b.jobs:
					e.done <- ErrClosed
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) execute(e *envelope) (err error) {
	if err := e.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mailbox: job panic: %v", r)
		}
	}()
	return e.job(e.ctx)
}
