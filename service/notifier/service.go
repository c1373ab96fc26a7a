package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/attention/internal/metrics"
	"github.com/viant/attention/model"
	"github.com/viant/attention/model/types"
	"github.com/viant/attention/service/dao/criteria"
	"github.com/viant/attention/service/feed"
)

// Watcher opens filtered change streams
type Watcher interface {
	Watch(ctx context.Context, query *criteria.Query) (*feed.Stream, error)
}

// Filter selects the changes a subscription receives. With OverloadOnly
// only the Overloads channel carries records.
type Filter struct {
	AgentID      string `json:"agentId"`
	SessionID    string `json:"sessionId,omitempty"`
	OverloadOnly bool   `json:"overloadOnly,omitempty"`
}

// Query returns the feed query of the filter
func (f Filter) Query() *criteria.Query {
	query := criteria.New().Agent(f.AgentID)
	if f.SessionID != "" {
		query.Session(f.SessionID)
	}
	if f.OverloadOnly {
		query.Overload(true)
	}
	return query
}

// Service manages change subscriptions
type Service struct {
	config  Config
	watcher Watcher
	logger  zerolog.Logger
	metrics *metrics.Metrics
	mu      sync.Mutex
	subs    map[string]*Subscription
	closed  bool
}

// New creates a notifier
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		logger: log.Logger,
		subs:   make(map[string]*Subscription),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.watcher == nil {
		return nil, fmt.Errorf("change feed is required")
	}
	defaults := DefaultConfig()
	if s.config.Buffer <= 0 {
		s.config.Buffer = defaults.Buffer
	}
	if s.config.DeliveryTimeout <= 0 {
		s.config.DeliveryTimeout = defaults.DeliveryTimeout
	}
	if s.config.DrainTimeout <= 0 {
		s.config.DrainTimeout = defaults.DrainTimeout
	}
	s.logger = s.logger.With().Str("service", "notifier").Logger()
	return s, nil
}

// Subscribe opens a subscription. It ends when ctx is done or Cancel is called.
func (s *Service) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	if filter.AgentID == "" {
		return nil, types.NewValidationError("agentId", "is required")
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("notifier: closed")
	}
	stream, err := s.watcher.Watch(ctx, filter.Query())
	if err != nil {
		return nil, fmt.Errorf("failed to watch %v: %w", filter.AgentID, err)
	}
	sub := newSubscription(s, stream, filter)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stream.Close()
		return nil, fmt.Errorf("notifier: closed")
	}
	s.subs[sub.id] = sub
	s.mu.Unlock()
	s.metrics.Subscribed(1)
	go sub.run()
	s.logger.Debug().Str("subscription", sub.id).Str("agent", filter.AgentID).
		Bool("overloadOnly", filter.OverloadOnly).Msg("subscribed")
	return sub, nil
}

// Monitor subscribes to agentID and calls onChange for every change and
// onOverload for overloaded ones. Either callback may be nil. A panicking
// callback is logged and does not stop the monitor.
func (s *Service) Monitor(ctx context.Context, agentID string, onChange, onOverload func(state *model.State)) (*Subscription, error) {
	sub, err := s.Subscribe(ctx, Filter{AgentID: agentID})
	if err != nil {
		return nil, err
	}
	go func() {
		changes, overloads := sub.Changes(), sub.Overloads()
		for changes != nil || overloads != nil {
			select {
			case state, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				s.invoke(sub.id, "change", onChange, state)
			case state, ok := <-overloads:
				if !ok {
					overloads = nil
					continue
				}
				s.invoke(sub.id, "overload", onOverload, state)
			}
		}
	}()
	return sub, nil
}

func (s *Service) invoke(subscriptionID, kind string, callback func(state *model.State), state *model.State) {
	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("subscription", subscriptionID).Str("callback", kind).
				Interface("panic", r).Msg("monitor callback panicked")
		}
	}()
	callback(state)
}

// Cancel cancels the subscription with id. It reports whether it was active.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	sub, ok := s.subs[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	sub.Cancel()
	return true
}

// Active returns the number of active subscriptions
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close cancels every subscription
func (s *Service) Close() error {
	s.mu.Lock()
	s.closed = true
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
	return nil
}

func (s *Service) remove(id string) {
	s.mu.Lock()
	_, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()
	if ok {
		s.metrics.Subscribed(-1)
	}
}
