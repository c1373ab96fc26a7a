package notifier

import (
	"fmt"
	"sync"
	"time"

	"github.com/viant/attention/model"
	"github.com/viant/attention/model/types"
	"github.com/viant/attention/service/event"
	"github.com/viant/attention/service/feed"
)

// Subscription delivers the changes of one agent
type Subscription struct {
	id        string
	filter    Filter
	service   *Service
	stream    *feed.Stream
	changes   chan *model.State
	overloads chan *model.State
	quit      chan struct{}
	done      chan struct{}
	once      sync.Once
}

func newSubscription(s *Service, stream *feed.Stream, filter Filter) *Subscription {
	return &Subscription{
		id:        stream.ID(),
		filter:    filter,
		service:   s,
		stream:    stream,
		changes:   make(chan *model.State, s.config.Buffer),
		overloads: make(chan *model.State, s.config.Buffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ID returns the subscription id
func (s *Subscription) ID() string {
	return s.id
}

// Filter returns the subscription filter
func (s *Subscription) Filter() Filter {
	return s.filter
}

// Changes returns every matching change. Closed when the subscription ends.
func (s *Subscription) Changes() <-chan *model.State {
	return s.changes
}

// Overloads returns the changes with the overload flag set. Closed when the
// subscription ends.
func (s *Subscription) Overloads() <-chan *model.State {
	return s.overloads
}

// Done is closed once delivery has stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Cancel stops delivery and waits up to the drain timeout for the delivery
// goroutine to exit. It is idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.quit)
		s.stream.Close()
	})
	timer := time.NewTimer(s.service.config.DrainTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.service.logger.Warn().Str("subscription", s.id).Msg("subscription drain timed out")
	}
}

func (s *Subscription) run() {
	defer func() {
		close(s.changes)
		close(s.overloads)
		s.service.remove(s.id)
		close(s.done)
	}()
	for {
		select {
		case <-s.quit:
			return
		case e, ok := <-s.stream.Events():
			if !ok {
				return
			}
			s.deliver(e)
		}
	}
}

func (s *Subscription) deliver(e *event.Event[model.State]) {
	state := e.Data.Clone()
	if !s.filter.OverloadOnly {
		if !s.send(s.changes, state, "changes") {
			return
		}
	}
	if state.CognitiveLoad.Overload {
		s.send(s.overloads, state.Clone(), "overloads")
	}
}

// send reports false when the subscription was cancelled while waiting
func (s *Subscription) send(ch chan *model.State, state *model.State, channel string) bool {
	select {
	case ch <- state:
		s.service.metrics.Notification("delivered")
		return true
	default:
	}
	timer := time.NewTimer(s.service.config.DeliveryTimeout)
	defer timer.Stop()
	select {
	case ch <- state:
		s.service.metrics.Notification("delivered")
		return true
	case <-s.quit:
		return false
	case <-timer.C:
		err := types.NewNotificationDeliveryError(s.id,
			fmt.Errorf("%v buffer full after %v, dropped version %d", channel, s.service.config.DeliveryTimeout, state.Version))
		s.service.metrics.Notification("dropped")
		s.service.logger.Warn().Err(err).Str("agent", state.AgentID).Msg("notification dropped")
		return true
	}
}
