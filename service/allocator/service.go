package allocator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/attention/internal/clock"
	"github.com/viant/attention/internal/ctxutil"
	"github.com/viant/attention/internal/metrics"
	"github.com/viant/attention/model"
	"github.com/viant/attention/model/load"
	"github.com/viant/attention/model/types"
	"github.com/viant/attention/runtime/mailbox"
	"github.com/viant/attention/service/dao"
)

// Service allocates attention and updates cognitive load
type Service struct {
	config     Config
	loadConfig load.Config
	allocator  *Allocator
	store      dao.StateStore
	mailbox    *mailbox.Dispatcher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// New creates a new allocator service
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		loadConfig: load.DefaultConfig(),
		logger:     log.Logger,
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
	s.logger = s.logger.With().Str("service", "allocator").Logger()
	s.allocator = NewAllocator(s.config)
	return s, nil
}

// Allocator returns the pure allocator used by the service
func (s *Service) Allocator() *Allocator {
	return s.allocator
}

// Allocate assesses load against the latest state, splits the attention
// budget and appends the resulting state.
func (s *Service) Allocate(ctx context.Context, request *model.Request) (*model.Allocation, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	var ret *model.Allocation
	err := s.mailbox.Do(ctx, request.AgentID, func(ctx context.Context) error {
		return dao.Retry(s.config.ConflictRetries, func() error {
			var err error
			ret, err = s.allocate(ctx, request)
			return err
		})
	})
	if err != nil {
		return nil, dao.Classify("allocate", err)
	}
	s.logger.Debug().
		Str("agent", ret.AgentID).
		Str("task", ret.Primary.TaskID).
		Float64("primary", ret.Primary.Focus).
		Float64("total", ret.TotalAllocation).
		Float64("utilization", ret.CognitiveLoad.Utilization).
		Bool("overload", ret.CognitiveLoad.Overload).
		Msg("attention allocated")
	s.metrics.Load(ret.AgentID, ret.CognitiveLoad.Utilization, ret.CognitiveLoad.Overload)
	return ret, nil
}

func (s *Service) allocate(ctx context.Context, request *model.Request) (*model.Allocation, error) {
	ctx, cancel := ctxutil.WithDefaultTimeout(ctx, s.config.OperationTimeout)
	defer cancel()
	prior, err := s.store.FindLatest(ctx, request.AgentID, request.SessionID)
	if err != nil && !errors.Is(err, dao.ErrNotFound) {
		return nil, err
	}
	assessment := load.Assess(request, prior, s.loadConfig)
	allocation, err := s.allocator.Allocate(request, assessment)
	if err != nil {
		return nil, err
	}
	next := s.successor(prior, request.AgentID, request.SessionID, clock.Now())
	primary := allocation.Primary
	primary.StartTime = next.Timestamp
	if prior != nil && prior.PrimaryTaskID() != "" {
		if prior.PrimaryTaskID() == primary.TaskID {
			primary.StartTime = prior.Attention.Primary.StartTime
		} else {
			next.ContextSwitching.RecordSwitch(prior.PrimaryTaskType(), primary.TaskType, next.Timestamp, allocation.Efficiency.TaskSwitchingCost)
		}
	}
	next.Attention = model.Attention{
		Primary:         &primary,
		Secondary:       allocation.Secondary,
		TotalAllocation: allocation.TotalAllocation,
		Efficiency:      allocation.Efficiency,
	}
	next.CognitiveLoad = allocation.CognitiveLoad
	if request.Context.StakesLevel == model.StakesCritical && !next.Distractions.Protection.DeepFocusMode {
		next.Distractions.SetDeepFocus(true, model.FocusSourceAllocation, next.Timestamp)
	}
	if next.Distractions.Protection.DeepFocusMode {
		next.Distractions.Protection.FocusTimeRemaining = request.Primary.EstimatedDuration
	}
	next.Distractions.Protection.InterruptionCost = model.Clamp01(0.5*next.CognitiveLoad.Utilization + 0.5*(1-request.Context.Interruptibility))
	session := &next.Analytics.Session
	session.AvgFocus = (session.AvgFocus*float64(session.Allocations) + primary.Focus) / float64(session.Allocations+1)
	session.Allocations++
	next.Analytics.Recommendations = allocation.Recommendations
	s.account(prior, next)
	if err := next.Validate(s.config.MaxTotalAllocation, s.loadConfig.OverloadThreshold); err != nil {
		return nil, err
	}
	id, err := s.store.Insert(ctx, next)
	if err != nil {
		return nil, err
	}
	allocation.StateID = id
	allocation.SessionID = next.SessionID
	allocation.Timestamp = next.Timestamp
	allocation.Primary.StartTime = primary.StartTime
	allocation.DeepFocusMode = next.Distractions.Protection.DeepFocusMode
	return allocation, nil
}

// UpdateLoad applies delta to the cognitive load of the current state and
// appends the result.
func (s *Service) UpdateLoad(ctx context.Context, agentID string, delta *model.LoadDelta) (*model.State, error) {
	if err := s.validateDelta(agentID, delta); err != nil {
		return nil, err
	}
	var ret *model.State
	err := s.mailbox.Do(ctx, agentID, func(ctx context.Context) error {
		return dao.Retry(s.config.ConflictRetries, func() error {
			var err error
			ret, err = s.updateLoad(ctx, agentID, delta)
			return err
		})
	})
	if err != nil {
		return nil, dao.Classify("updateLoad", err)
	}
	s.logger.Debug().
		Str("agent", agentID).
		Float64("utilization", ret.CognitiveLoad.Utilization).
		Bool("overload", ret.CognitiveLoad.Overload).
		Msg("cognitive load updated")
	s.metrics.Load(agentID, ret.CognitiveLoad.Utilization, ret.CognitiveLoad.Overload)
	return ret, nil
}

func (s *Service) updateLoad(ctx context.Context, agentID string, delta *model.LoadDelta) (*model.State, error) {
	ctx, cancel := ctxutil.WithDefaultTimeout(ctx, s.config.OperationTimeout)
	defer cancel()
	prior, err := s.store.FindLatest(ctx, agentID, delta.SessionID)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, types.NewAgentStateNotFoundError(agentID, delta.SessionID)
	}
	if err != nil {
		return nil, err
	}
	next := s.successor(prior, agentID, delta.SessionID, clock.Now())
	previous := next.CognitiveLoad.Current
	if delta.Current != nil {
		next.CognitiveLoad.Current = *delta.Current
	} else {
		next.CognitiveLoad.Current += delta.Adjustment
	}
	load.Recompute(&next.CognitiveLoad, s.loadConfig)
	switch {
	case delta.Breakdown != nil:
		next.CognitiveLoad.Breakdown = delta.Breakdown.Scale(1)
	case previous > 0:
		next.CognitiveLoad.Breakdown = next.CognitiveLoad.Breakdown.Scale(next.CognitiveLoad.Current / previous)
	default:
		next.CognitiveLoad.Breakdown = load.BreakdownFor(next.PrimaryTaskType(), next.CognitiveLoad.Current)
	}
	next.Attention.Efficiency = Efficiency(next.CognitiveLoad.Utilization, activeSecondary(next.Attention.Secondary))
	next.Analytics.Session.LoadUpdates++
	s.account(prior, next)
	if err := next.Validate(s.config.MaxTotalAllocation, s.loadConfig.OverloadThreshold); err != nil {
		return nil, err
	}
	if _, err := s.store.Insert(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) validateDelta(agentID string, delta *model.LoadDelta) error {
	if agentID == "" {
		return types.NewValidationError("agentId", "is required")
	}
	if delta == nil {
		return types.NewValidationError("delta", "is required")
	}
	if delta.Current != nil && (math.IsNaN(*delta.Current) || *delta.Current < 0) {
		return types.NewValidationError("delta.current", "%v must be a non-negative number", *delta.Current)
	}
	if math.IsNaN(delta.Adjustment) || math.Abs(delta.Adjustment) > 1 {
		return types.NewValidationError("delta.adjustment", "%v outside [-1,1]", delta.Adjustment)
	}
	if b := delta.Breakdown; b != nil {
		for name, v := range map[string]float64{
			"working_memory":  b.WorkingMemory,
			"processing":      b.Processing,
			"decision_making": b.DecisionMaking,
			"communication":   b.Communication,
			"monitoring":      b.Monitoring,
		} {
			if math.IsNaN(v) || v < 0 || v > 1 {
				return types.NewValidationError("delta.breakdown."+name, "%v outside [0,1]", v)
			}
		}
	}
	return nil
}

// successor returns the record following prior in its scope.
func (s *Service) successor(prior *model.State, agentID, sessionID string, now time.Time) *model.State {
	if prior == nil {
		return &model.State{
			AgentID:   agentID,
			SessionID: sessionID,
			Timestamp: now,
			Version:   1,
			Distractions: model.Distractions{
				Filtering: model.FilterSettings{
					Enabled:           s.config.Filter.Enabled,
					Threshold:         s.config.Filter.Threshold,
					Whitelist:         append([]string(nil), s.config.Filter.Whitelist...),
					Blacklist:         append([]string(nil), s.config.Filter.Blacklist...),
					AdaptiveFiltering: s.config.Filter.AdaptiveFiltering,
				},
			},
			Analytics:  model.Analytics{Session: model.SessionAnalytics{StartTime: now}},
			Monitoring: model.Monitoring{AlertsEnabled: true, Thresholds: s.config.Thresholds},
		}
	}
	next := prior.Clone()
	next.ID = ""
	next.Version = prior.Version + 1
	next.Timestamp = model.NextTimestamp(prior, now)
	return next
}

// account updates trends, overload counters and alerts of next against prior.
func (s *Service) account(prior, next *model.State) {
	if next.CognitiveLoad.Overload {
		next.Analytics.Session.OverloadEvents++
	}
	if prior != nil {
		trends := &next.Analytics.Trends
		trends.UtilizationDelta = next.CognitiveLoad.Utilization - prior.CognitiveLoad.Utilization
		trends.FocusDelta = focusOf(next) - focusOf(prior)
		switch {
		case trends.UtilizationDelta > 0.05:
			trends.Direction = "rising"
		case trends.UtilizationDelta < -0.05:
			trends.Direction = "falling"
		default:
			trends.Direction = "stable"
		}
	}
	monitoring := &next.Monitoring
	if !monitoring.AlertsEnabled {
		return
	}
	load := next.CognitiveLoad
	switch {
	case load.Overload:
		monitoring.Raise(model.Alert{Type: model.AlertOverload, Message: "cognitive overload", Value: load.Utilization, At: next.Timestamp})
	case monitoring.Thresholds.OverloadWarning > 0 && load.Utilization > monitoring.Thresholds.OverloadWarning:
		monitoring.Raise(model.Alert{Type: model.AlertOverloadWarning, Message: "cognitive load approaching capacity", Value: load.Utilization, At: next.Timestamp})
	}
	if quality := next.Attention.Efficiency.FocusQuality; monitoring.Thresholds.FocusDegradation > 0 && quality < monitoring.Thresholds.FocusDegradation {
		monitoring.Raise(model.Alert{Type: model.AlertFocusDegradation, Message: "focus quality degraded", Value: quality, At: next.Timestamp})
	}
}

func focusOf(state *model.State) float64 {
	if state.Attention.Primary == nil {
		return 0
	}
	return state.Attention.Primary.Focus
}

func activeSecondary(secondary []model.SecondaryFocus) int {
	ret := 0
	for _, focus := range secondary {
		if !focus.Deferred {
			ret++
		}
	}
	return ret
}
