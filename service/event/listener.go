package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Listener consumes events in a goroutine and passes them to a handler
type Listener[T any] struct {
	publisher    *Publisher[T]
	handler      func(*Event[T])
	pollInterval time.Duration
	logger       zerolog.Logger
	cancel       context.CancelFunc
	done         chan struct{}
	once         sync.Once
}

// NewListener creates a listener. pollInterval is the wait after an empty
// consume on polling vendors.
func NewListener[T any](publisher *Publisher[T], handler func(*Event[T]), pollInterval time.Duration) *Listener[T] {
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &Listener[T]{
		publisher:    publisher,
		handler:      handler,
		pollInterval: pollInterval,
		logger:       log.Logger.With().Str("component", "listener").Logger(),
		done:         make(chan struct{}),
	}
}

// Start consumes events until ctx is done or Stop is called
func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go func() {
		defer close(l.done)
		for {
			if ctx.Err() != nil {
				return
			}
			event, err := l.publisher.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				l.logger.Warn().Err(err).Msg("failed to consume event")
				l.wait(ctx)
				continue
			}
			if event == nil {
				l.wait(ctx)
				continue
			}
			l.handler(event)
		}
	}()
}

// Stop stops consuming and waits for the goroutine to exit
func (l *Listener[T]) Stop() {
	l.once.Do(func() {
		if l.cancel == nil {
			close(l.done)
			return
		}
		l.cancel()
	})
	<-l.done
}

func (l *Listener[T]) wait(ctx context.Context) {
	timer := time.NewTimer(l.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
