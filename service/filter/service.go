package filter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
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

// Result is the outcome of a distraction evaluation.
type Result struct {
	AgentID   string    `json:"agentId"`
	StateID   string    `json:"stateId"`
	Source    string    `json:"source"`
	Intensity float64   `json:"intensity"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// Service configures distraction filters and evaluates distractions against
// the latest agent state
type Service struct {
	store   dao.StateStore
	mailbox *mailbox.Dispatcher
	logger  zerolog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	retries int
}

// New creates a filter service
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
	s.logger = s.logger.With().Str("service", "filter").Logger()
	return s, nil
}

// Configure replaces the filter settings of the latest state. An explicit deep
// focus value is recorded in the audit trail and overrides any earlier write.
func (s *Service) Configure(ctx context.Context, agentID string, config *model.FilterConfig) (*model.State, error) {
	if err := validateConfig(agentID, config); err != nil {
		return nil, err
	}
	ret, err := s.update(ctx, "configureFilter", agentID, config.SessionID, func(state *model.State) error {
		state.Timestamp = model.NextTimestamp(state, clock.Now())
		state.Distractions.Filtering = model.FilterSettings{
			Enabled:           config.Enabled,
			Threshold:         config.Threshold,
			Whitelist:         append([]string(nil), config.Whitelist...),
			Blacklist:         append([]string(nil), config.Blacklist...),
			AdaptiveFiltering: config.AdaptiveFiltering,
		}
		if config.DeepFocusMode != nil {
			state.Distractions.SetDeepFocus(*config.DeepFocusMode, model.FocusSourceConfigure, state.Timestamp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("agent", agentID).
		Bool("enabled", config.Enabled).
		Float64("threshold", config.Threshold).
		Bool("deepFocus", ret.Distractions.Protection.DeepFocusMode).
		Msg("distraction filter configured")
	return ret, nil
}

// Evaluate decides whether a distraction passes the filter of the latest state
// and records the outcome.
func (s *Service) Evaluate(ctx context.Context, agentID, sessionID, source string, intensity float64) (*Result, error) {
	if agentID == "" {
		return nil, types.NewValidationError("agentId", "is required")
	}
	if strings.TrimSpace(source) == "" {
		return nil, types.NewValidationError("source", "is required")
	}
	if math.IsNaN(intensity) || intensity < 0 || intensity > 1 {
		return nil, types.NewValidationError("intensity", "%v outside [0,1]", intensity)
	}
	ret := &Result{AgentID: agentID, Source: source, Intensity: intensity}
	state, err := s.update(ctx, "evaluateDistraction", agentID, sessionID, func(state *model.State) error {
		ret.Allowed, ret.Reason = FromState(state).Decide(source, intensity)
		ret.At = model.NextTimestamp(state, clock.Now())
		state.Timestamp = ret.At
		state.Distractions.Record(model.Distraction{Source: source, Intensity: intensity, ArrivedAt: ret.At, Allowed: ret.Allowed})
		monitoring := &state.Monitoring
		if ret.Allowed && monitoring.AlertsEnabled && monitoring.Thresholds.DistractionAlert > 0 && intensity > monitoring.Thresholds.DistractionAlert {
			monitoring.Raise(model.Alert{Type: model.AlertDistraction, Message: "intense distraction passed filter: " + source, Value: intensity, At: ret.At})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ret.StateID = state.ID
	s.metrics.Distraction(ret.Allowed)
	s.logger.Debug().Str("agent", agentID).Str("source", source).Float64("intensity", intensity).
		Bool("allowed", ret.Allowed).Str("reason", ret.Reason).Msg("distraction evaluated")
	return ret, nil
}

// Adapt nudges the threshold of an adaptive filter toward effectiveness. A
// filter without adaptive filtering is returned unchanged.
func (s *Service) Adapt(ctx context.Context, agentID, sessionID string, effectiveness, rate float64) (*model.State, error) {
	if agentID == "" {
		return nil, types.NewValidationError("agentId", "is required")
	}
	if math.IsNaN(effectiveness) || effectiveness < 0 || effectiveness > 1 {
		return nil, types.NewValidationError("effectiveness", "%v outside [0,1]", effectiveness)
	}
	if rate <= 0 {
		rate = DefaultLearningRate
	}
	var previous float64
	ret, err := s.update(ctx, "adaptFilter", agentID, sessionID, func(state *model.State) error {
		filtering := &state.Distractions.Filtering
		if !filtering.AdaptiveFiltering {
			return errUnchanged
		}
		previous = filtering.Threshold
		threshold := Adapt(filtering.Threshold, effectiveness, rate)
		if math.Abs(threshold-filtering.Threshold) < model.Epsilon {
			return errUnchanged
		}
		filtering.Threshold = threshold
		state.Timestamp = model.NextTimestamp(state, clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ret.Distractions.Filtering.Threshold != previous && ret.Distractions.Filtering.AdaptiveFiltering {
		s.logger.Debug().Str("agent", agentID).Float64("from", previous).
			Float64("to", ret.Distractions.Filtering.Threshold).Msg("filter threshold adapted")
	}
	return ret, nil
}

// errUnchanged aborts an update that would not modify the record.
var errUnchanged = errors.New("filter: unchanged")

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
	return ret, nil
}

func validateConfig(agentID string, config *model.FilterConfig) error {
	if agentID == "" {
		return types.NewValidationError("agentId", "is required")
	}
	if config == nil {
		return types.NewValidationError("config", "is required")
	}
	if math.IsNaN(config.Threshold) || config.Threshold < 0 || config.Threshold > 1 {
		return types.NewValidationError("config.threshold", "%v outside [0,1]", config.Threshold)
	}
	for name, list := range map[string][]string{"config.whitelist": config.Whitelist, "config.blacklist": config.Blacklist} {
		for i, entry := range list {
			if strings.TrimSpace(entry) == "" {
				return types.NewValidationError(fmt.Sprintf("%v[%d]", name, i), "is empty")
			}
		}
	}
	return nil
}
