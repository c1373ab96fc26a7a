package attention

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/attention/model"
	"github.com/viant/attention/progress"
	"github.com/viant/attention/service/analytics"
	"github.com/viant/attention/service/filter"
	"github.com/viant/attention/service/notifier"
	"github.com/viant/attention/service/tuner"
	"github.com/viant/attention/tracing"
)

// AllocateAttention computes and records a new allocation for request.AgentID
func (s *Service) AllocateAttention(ctx context.Context, request *model.Request) (*model.Allocation, error) {
	var agentID string
	if request != nil {
		agentID = request.AgentID
	}
	var ret *model.Allocation
	err := s.run(ctx, "allocateAttention", agentID, func(ctx context.Context, span *tracing.Span) error {
		var err error
		if ret, err = s.allocator.Allocate(ctx, request); err != nil {
			return err
		}
		span.WithFloat("attention.utilization", ret.CognitiveLoad.Utilization).
			WithFloat("attention.total", ret.TotalAllocation).
			WithBool("attention.overload", ret.CognitiveLoad.Overload)
		s.progress.Update(agentID, progress.Delta{Allocations: 1, Overloads: overloads(ret.CognitiveLoad)})
		return nil
	})
	return ret, err
}

// UpdateCognitiveLoad applies delta to the latest load of agentID and
// records the result
func (s *Service) UpdateCognitiveLoad(ctx context.Context, agentID string, delta *model.LoadDelta) (*model.State, error) {
	var ret *model.State
	err := s.run(ctx, "updateCognitiveLoad", agentID, func(ctx context.Context, span *tracing.Span) error {
		var err error
		if ret, err = s.allocator.UpdateLoad(ctx, agentID, delta); err != nil {
			return err
		}
		span.WithFloat("attention.utilization", ret.CognitiveLoad.Utilization)
		s.progress.Update(agentID, progress.Delta{LoadUpdates: 1, Overloads: overloads(ret.CognitiveLoad)})
		return nil
	})
	return ret, err
}

// ManagePriorityQueue adds or removes a queue item of agentID
func (s *Service) ManagePriorityQueue(ctx context.Context, agentID string, op *model.QueueOperation) (*model.State, error) {
	var ret *model.State
	err := s.run(ctx, "managePriorityQueue", agentID, func(ctx context.Context, span *tracing.Span) error {
		if op != nil {
			span.WithAttributes(map[string]string{"queue.op": string(op.Op), "queue.tier": string(op.Tier)})
		}
		var err error
		if ret, err = s.queue.Apply(ctx, agentID, op); err != nil {
			return err
		}
		s.progress.Update(agentID, progress.Delta{QueueOps: 1})
		return nil
	})
	return ret, err
}

// ConfigureDistractionFilter replaces the distraction filter of agentID
func (s *Service) ConfigureDistractionFilter(ctx context.Context, agentID string, config *model.FilterConfig) (*model.State, error) {
	var ret *model.State
	err := s.run(ctx, "configureDistractionFilter", agentID, func(ctx context.Context, span *tracing.Span) error {
		var err error
		if ret, err = s.filter.Configure(ctx, agentID, config); err != nil {
			return err
		}
		span.WithBool("filter.deepFocus", ret.Distractions.Protection.DeepFocusMode)
		s.progress.Update(agentID, progress.Delta{Configurations: 1})
		return nil
	})
	return ret, err
}

// EvaluateDistraction decides whether a distraction from source reaches agentID
func (s *Service) EvaluateDistraction(ctx context.Context, agentID, sessionID, source string, intensity float64) (*filter.Result, error) {
	var ret *filter.Result
	err := s.run(ctx, "evaluateDistraction", agentID, func(ctx context.Context, span *tracing.Span) error {
		var err error
		if ret, err = s.filter.Evaluate(ctx, agentID, sessionID, source, intensity); err != nil {
			return err
		}
		span.WithBool("filter.allowed", ret.Allowed).WithAttributes(map[string]string{"filter.reason": ret.Reason})
		delta := progress.Delta{Distractions: 1}
		if !ret.Allowed {
			delta.Filtered = 1
		}
		s.progress.Update(agentID, delta)
		return nil
	})
	return ret, err
}

// AnalyzePatterns reports on the history of agentID within window
func (s *Service) AnalyzePatterns(ctx context.Context, agentID string, window time.Duration) (*analytics.Report, error) {
	var ret *analytics.Report
	err := s.run(ctx, "analyzePatterns", agentID, func(ctx context.Context, span *tracing.Span) error {
		var err error
		ret, err = s.analytics.Analyze(ctx, agentID, window)
		return err
	})
	return ret, err
}

// GetStats summarizes the latest state of agentID, or of all agents when empty
func (s *Service) GetStats(ctx context.Context, agentID string) (*analytics.Stats, error) {
	var ret *analytics.Stats
	err := s.run(ctx, "getStats", agentID, func(ctx context.Context, span *tracing.Span) error {
		var err error
		ret, err = s.analytics.Stats(ctx, agentID)
		return err
	})
	return ret, err
}

// TuneFilter moves an adaptive filter threshold of agentID toward the
// observed filtering effectiveness
func (s *Service) TuneFilter(ctx context.Context, agentID string) (*tuner.Outcome, error) {
	var ret *tuner.Outcome
	err := s.run(ctx, "tuneFilter", agentID, func(ctx context.Context, span *tracing.Span) error {
		var err error
		if ret, err = s.tuner.Tune(ctx, agentID); err != nil {
			return err
		}
		span.WithBool("filter.adapted", ret.Adapted).WithFloat("filter.threshold", ret.Threshold)
		return nil
	})
	return ret, err
}

// Subscribe opens a change subscription
func (s *Service) Subscribe(ctx context.Context, filter notifier.Filter) (*notifier.Subscription, error) {
	var ret *notifier.Subscription
	err := s.run(ctx, "subscribe", filter.AgentID, func(ctx context.Context, span *tracing.Span) error {
		var err error
		ret, err = s.notifier.Subscribe(ctx, filter)
		return err
	})
	return ret, err
}

// StartMonitoring calls onChange for every change of agentID and onOverload
// for overloaded ones until StopMonitoring or Close. It returns the
// monitor id.
func (s *Service) StartMonitoring(ctx context.Context, agentID string, onChange, onOverload func(state *model.State)) (string, error) {
	var id string
	err := s.run(ctx, "startMonitoring", agentID, func(ctx context.Context, span *tracing.Span) error {
		sub, err := s.notifier.Monitor(context.WithoutCancel(ctx), agentID, onChange, onOverload)
		if err != nil {
			return err
		}
		id = sub.ID()
		s.mu.Lock()
		s.monitors[id] = agentID
		s.mu.Unlock()
		return nil
	})
	return id, err
}

// StopMonitoring stops the monitors of the given agents, or every monitor
// when none is given. It returns the number of monitors stopped.
func (s *Service) StopMonitoring(agentIDs ...string) int {
	selected := make(map[string]bool, len(agentIDs))
	for _, agentID := range agentIDs {
		selected[agentID] = true
	}
	s.mu.Lock()
	var ids []string
	for id, agentID := range s.monitors {
		if len(selected) == 0 || selected[agentID] {
			ids = append(ids, id)
			delete(s.monitors, id)
		}
	}
	s.mu.Unlock()
	stopped := 0
	for _, id := range ids {
		if s.notifier.Cancel(id) {
			stopped++
		}
	}
	s.logger.Debug().Int("stopped", stopped).Strs("agents", agentIDs).Msg("monitoring stopped")
	return stopped
}

// run executes an operation inside a span and records its outcome
func (s *Service) run(ctx context.Context, op, agentID string, fn func(ctx context.Context, span *tracing.Span) error) (err error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("attention service closed")
	}
	started := time.Now()
	ctx, span := tracing.StartOperation(ctx, op, agentID)
	defer func() {
		tracing.EndSpan(span, err)
		s.metrics.Observe(op, started, err)
		if err != nil {
			s.progress.Update(agentID, progress.Delta{Failures: 1})
			s.logger.Debug().Err(err).Str("op", op).Str("agent", agentID).Msg("operation failed")
		}
	}()
	return fn(ctx, span)
}

func overloads(load model.CognitiveLoad) int {
	if load.Overload {
		return 1
	}
	return 0
}
