package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/attention/internal/ctxutil"
	"github.com/viant/attention/model"
	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/service/event"
	"github.com/viant/attention/tracing"
)

// observedStore publishes a change event after every successful write
type observedStore struct {
	dao.StateStore
	publisher Publisher
	timeout   time.Duration
	logger    zerolog.Logger
}

// Observe wraps store so that Insert and UpdateLatest publish to publisher.
// Publishing is best effort: a failed publish is logged and never fails the
// write that already committed.
func Observe(store dao.StateStore, publisher Publisher, timeout time.Duration, logger zerolog.Logger) dao.StateStore {
	if publisher == nil {
		return store
	}
	if timeout <= 0 {
		timeout = DefaultConfig().PublishTimeout
	}
	return &observedStore{
		StateStore: store,
		publisher:  publisher,
		timeout:    timeout,
		logger:     logger.With().Str("component", "feed.observer").Logger(),
	}
}

func (s *observedStore) Insert(ctx context.Context, state *model.State) (string, error) {
	id, err := s.StateStore.Insert(ctx, state)
	if err != nil {
		return id, err
	}
	published := state.Clone()
	published.ID = id
	s.publish(ctx, event.TypeInsert, published)
	return id, nil
}

func (s *observedStore) UpdateLatest(ctx context.Context, agentID, sessionID string, fn func(state *model.State) error) (*model.State, error) {
	state, err := s.StateStore.UpdateLatest(ctx, agentID, sessionID, fn)
	if err != nil {
		return state, err
	}
	s.publish(ctx, event.TypeUpdate, state.Clone())
	return state, nil
}

func (s *observedStore) publish(ctx context.Context, eventType string, state *model.State) {
	ctx, cancel := ctxutil.DetachWithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracing.StartSpan(ctx, "feed.publish", tracing.KindProducer)
	span.WithAttributes(map[string]string{"event.type": eventType, "agent.id": state.AgentID})
	e := event.NewEvent(&event.Context{
		AgentID:   state.AgentID,
		SessionID: state.SessionID,
		StateID:   state.ID,
		Version:   state.Version,
		EventType: eventType,
		Overload:  state.CognitiveLoad.Overload,
	}, *state)
	err := s.publisher.Publish(ctx, e)
	tracing.EndSpan(span, err)
	if err != nil {
		s.logger.Warn().Err(err).Str("agent", state.AgentID).Int64("version", state.Version).
			Str("type", eventType).Msg("failed to publish change")
	}
}
