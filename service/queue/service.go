package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/attention/internal/clock"
	"github.com/viant/attention/internal/ctxutil"
	"github.com/viant/attention/internal/metrics"
	"github.com/viant/attention/model"
	"github.com/viant/attention/model/types"
	"github.com/viant/attention/runtime/mailbox"
	"github.com/viant/attention/service/dao"
)

// errUnchanged aborts an update that would not modify the record.
var errUnchanged = errors.New("queue: unchanged")

// Service manages the priority queue of the latest agent state
type Service struct {
	store   dao.StateStore
	mailbox *mailbox.Dispatcher
	logger  zerolog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	retries int
}

// New creates a queue service
func New(options ...Option) (*Service, error) {
	s := &Service{
		logger:  log.Logger,
		timeout: 5 * time.Second,
		retries: 3,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if s.mailbox == nil {
		return nil, fmt.Errorf("mailbox is required")
	}
	s.logger = s.logger.With().Str("service", "queue").Logger()
	return s, nil
}

// Apply dispatches a queue operation
func (s *Service) Apply(ctx context.Context, agentID string, op *model.QueueOperation) (*model.State, error) {
	if op == nil {
		return nil, types.NewValidationError("operation", "is required")
	}
	switch op.Op {
	case model.QueueAdd:
		return s.Add(ctx, agentID, op.SessionID, op.Tier, op.Item)
	case model.QueueRemove:
		taskID := op.TaskID
		if taskID == "" {
			taskID = op.Item.TaskID
		}
		return s.Remove(ctx, agentID, op.SessionID, taskID)
	}
	return nil, types.NewValidationError("operation.op", "unsupported operation %q", op.Op)
}

// Add appends item to tier with the arrival time set to now.
func (s *Service) Add(ctx context.Context, agentID, sessionID string, tier model.Priority, item model.QueueItem) (*model.State, error) {
	if agentID == "" {
		return nil, types.NewValidationError("agentId", "is required")
	}
	if item.TaskID == "" {
		return nil, types.NewValidationError("item.taskId", "is required")
	}
	if !tier.Valid() {
		return nil, types.NewValidationError("tier", "unknown tier %q", tier)
	}
	if item.EstimatedProcessingTime < 0 {
		return nil, types.NewValidationError("item.estimatedProcessingTime", "must not be negative")
	}
	ret, err := s.update(ctx, "queueAdd", agentID, sessionID, func(state *model.State) error {
		if existing, _, ok := state.PriorityQueue.Find(item.TaskID); ok {
			return types.NewValidationError("item.taskId", "task %v already queued in %v tier", item.TaskID, existing)
		}
		now := clock.Now()
		state.Timestamp = model.NextTimestamp(state, now)
		item.ArrivalTime = now
		item.Dependencies = append([]string{}, item.Dependencies...)
		state.PriorityQueue.Add(tier, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("agent", agentID).Str("task", item.TaskID).Str("tier", string(tier)).Msg("task queued")
	return ret, nil
}

// Remove deletes taskID from whichever tier holds it. Removing an absent task
// leaves the state untouched.
func (s *Service) Remove(ctx context.Context, agentID, sessionID, taskID string) (*model.State, error) {
	if agentID == "" {
		return nil, types.NewValidationError("agentId", "is required")
	}
	if taskID == "" {
		return nil, types.NewValidationError("taskId", "is required")
	}
	ret, err := s.update(ctx, "queueRemove", agentID, sessionID, func(state *model.State) error {
		if !state.PriorityQueue.Remove(taskID) {
			return errUnchanged
		}
		state.Timestamp = model.NextTimestamp(state, clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("agent", agentID).Str("task", taskID).Msg("task dequeued")
	return ret, nil
}

func (s *Service) update(ctx context.Context, op, agentID, sessionID string, fn func(state *model.State) error) (*model.State, error) {
	var ret *model.State
	err := s.mailbox.Do(ctx, agentID, func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithDefaultTimeout(ctx, s.timeout)
		defer cancel()
		return dao.Retry(s.retries, func() error {
			var err error
			ret, err = s.store.UpdateLatest(ctx, agentID, sessionID, fn)
			if errors.Is(err, errUnchanged) {
				ret, err = s.store.FindLatest(ctx, agentID, sessionID)
			}
			return err
		})
	})
	if errors.Is(err, dao.ErrNotFound) {
		return nil, types.NewAgentStateNotFoundError(agentID, sessionID)
	}
	if err != nil {
		return nil, dao.Classify(op, err)
	}
	s.metrics.Queue(agentID, Depths(ret))
	return ret, nil
}

// Depths returns the tier depths of state keyed by tier name.
func Depths(state *model.State) map[string]int {
	ret := make(map[string]int, len(model.Priorities))
	for priority, depth := range state.PriorityQueue.Depths() {
		ret[string(priority)] = depth
	}
	return ret
}
