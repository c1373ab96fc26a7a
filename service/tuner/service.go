// Package tuner periodically moves adaptive distraction filter thresholds
// toward the filtering effectiveness observed over the analytics window.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/attention/internal/ctxutil"
	"github.com/viant/attention/model"
	"github.com/viant/attention/model/types"
	"github.com/viant/attention/service/analytics"
	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/service/dao/criteria"
)

// Analyzer reports on an agent history window
type Analyzer interface {
	Analyze(ctx context.Context, agentID string, window time.Duration) (*analytics.Report, error)
}

// Adapter moves a filter threshold toward effectiveness
type Adapter interface {
	Adapt(ctx context.Context, agentID, sessionID string, effectiveness, rate float64) (*model.State, error)
}

// Skip reasons.
const (
	ReasonNotAdaptive   = "not_adaptive"
	ReasonFewSamples    = "few_distractions"
	ReasonAdapted       = "adapted"
	ReasonAtEquilibrium = "unchanged"
)

// Outcome describes a tuning of one agent
type Outcome struct {
	AgentID       string  `json:"agentId"`
	Distractions  int     `json:"distractions"`
	Effectiveness float64 `json:"effectiveness"`
	Previous      float64 `json:"previous"`
	Threshold     float64 `json:"threshold"`
	Adapted       bool    `json:"adapted"`
	Reason        string  `json:"reason"`
}

// Service runs threshold adaptation on demand and on a cron schedule
type Service struct {
	config   Config
	store    dao.StateStore
	analyzer Analyzer
	adapter  Adapter
	logger   zerolog.Logger
	mu       sync.Mutex
	cron     *cron.Cron
}

// New creates a tuner
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig(), logger: log.Logger}
	for _, opt := range options {
		opt(s)
	}
	switch {
	case s.store == nil:
		return nil, fmt.Errorf("state store is required")
	case s.analyzer == nil:
		return nil, fmt.Errorf("analyzer is required")
	case s.adapter == nil:
		return nil, fmt.Errorf("filter adapter is required")
	}
	defaults := DefaultConfig()
	if s.config.Schedule == "" {
		s.config.Schedule = defaults.Schedule
	}
	if s.config.Window <= 0 {
		s.config.Window = defaults.Window
	}
	if s.config.LearningRate <= 0 {
		s.config.LearningRate = defaults.LearningRate
	}
	if s.config.Timeout <= 0 {
		s.config.Timeout = defaults.Timeout
	}
	s.logger = s.logger.With().Str("service", "tuner").Logger()
	return s, nil
}

// Tune adapts the filter threshold of agentID once
func (s *Service) Tune(ctx context.Context, agentID string) (*Outcome, error) {
	if agentID == "" {
		return nil, types.NewValidationError("agentId", "is required")
	}
	latest, err := s.store.FindLatest(ctx, agentID, "")
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, types.NewAgentStateNotFoundError(agentID, "")
		}
		return nil, dao.Classify("tune", err)
	}
	return s.tune(ctx, latest)
}

func (s *Service) tune(ctx context.Context, latest *model.State) (*Outcome, error) {
	filtering := latest.Distractions.Filtering
	ret := &Outcome{AgentID: latest.AgentID, Previous: filtering.Threshold, Threshold: filtering.Threshold}
	if !filtering.AdaptiveFiltering {
		ret.Reason = ReasonNotAdaptive
		return ret, nil
	}
	report, err := s.analyzer.Analyze(ctx, latest.AgentID, s.config.Window)
	if err != nil {
		return nil, err
	}
	ret.Distractions = report.Distraction.Total
	ret.Effectiveness = report.Distraction.Ratio
	if ret.Distractions == 0 || ret.Distractions < s.config.MinDistractions {
		ret.Reason = ReasonFewSamples
		return ret, nil
	}
	state, err := s.adapter.Adapt(ctx, latest.AgentID, "", ret.Effectiveness, s.config.LearningRate)
	if err != nil {
		return nil, err
	}
	ret.Threshold = state.Distractions.Filtering.Threshold
	ret.Adapted = ret.Threshold != ret.Previous
	ret.Reason = ReasonAtEquilibrium
	if ret.Adapted {
		ret.Reason = ReasonAdapted
	}
	return ret, nil
}

// TuneAll tunes every agent whose latest record has adaptive filtering
func (s *Service) TuneAll(ctx context.Context) ([]*Outcome, error) {
	states, err := s.store.QueryRange(ctx, criteria.New().Desc())
	if err != nil {
		return nil, dao.Classify("tune", err)
	}
	seen := make(map[string]bool)
	var latest []*model.State
	for _, state := range states {
		if seen[state.AgentID] {
			continue
		}
		seen[state.AgentID] = true
		if state.Distractions.Filtering.AdaptiveFiltering {
			latest = append(latest, state)
		}
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].AgentID < latest[j].AgentID })
	var ret []*Outcome
	var errs []error
	for _, state := range latest {
		outcome, err := s.tune(ctx, state)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to tune %v: %w", state.AgentID, err))
			continue
		}
		ret = append(ret, outcome)
	}
	return ret, errors.Join(errs...)
}

// Start schedules TuneAll. It is a no-op when already started.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.config.Schedule, s.run); err != nil {
		return fmt.Errorf("invalid tuner schedule %q: %w", s.config.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info().Str("schedule", s.config.Schedule).Msg("tuner started")
	return nil
}

// Stop stops the schedule and waits for a running job
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	ctx := c.Stop()
	<-ctx.Done()
}

func (s *Service) run() {
	ctx, cancel := ctxutil.WithDefaultTimeout(context.Background(), s.config.Timeout)
	defer cancel()
	outcomes, err := s.TuneAll(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("tuning run failed")
	}
	adapted := 0
	for _, outcome := range outcomes {
		if outcome.Adapted {
			adapted++
			s.logger.Debug().Str("agent", outcome.AgentID).Float64("from", outcome.Previous).
				Float64("to", outcome.Threshold).Float64("effectiveness", outcome.Effectiveness).Msg("threshold tuned")
		}
	}
	s.logger.Debug().Int("agents", len(outcomes)).Int("adapted", adapted).Msg("tuning run finished")
}
