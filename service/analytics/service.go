package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/attention/internal/clock"
	"github.com/viant/attention/internal/ctxutil"
	"github.com/viant/attention/model"
	"github.com/viant/attention/model/types"
	"github.com/viant/attention/progress"
	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/service/dao/criteria"
)

// Service computes reports over the state history
type Service struct {
	config   Config
	store    dao.StateStore
	progress *progress.Registry
	logger   zerolog.Logger
	timeout  time.Duration
}

// New creates an analytics service
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:  DefaultConfig(),
		logger:  log.Logger,
		timeout: 5 * time.Second,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if s.config.DefaultWindow <= 0 {
		s.config.DefaultWindow = DefaultConfig().DefaultWindow
	}
	s.logger = s.logger.With().Str("service", "analytics").Logger()
	return s, nil
}

// Config returns the service configuration
func (s *Service) Config() Config {
	return s.config
}

// Analyze reports on the records of agentID written within the last window.
// A non positive window uses the configured default.
func (s *Service) Analyze(ctx context.Context, agentID string, window time.Duration) (*Report, error) {
	if agentID == "" {
		return nil, types.NewValidationError("agentId", "is required")
	}
	if window <= 0 {
		window = s.config.DefaultWindow
	}
	ctx, cancel := ctxutil.WithDefaultTimeout(ctx, s.timeout)
	defer cancel()
	to := clock.Now()
	from := to.Add(-window)
	states, err := s.store.QueryRange(ctx, criteria.New().Agent(agentID).Between(from, to))
	if err != nil {
		return nil, dao.Classify("analyze", err)
	}
	if len(states) == 0 {
		if _, err := s.store.FindLatest(ctx, agentID, ""); err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				return nil, types.NewAgentStateNotFoundError(agentID, "")
			}
			return nil, dao.Classify("analyze", err)
		}
	}
	baselines, err := s.baselines(ctx, agentID, from, states)
	if err != nil {
		return nil, dao.Classify("analyze", err)
	}
	report := Summarize(agentID, from, to, states, baselines)
	report.Recommendations = s.recommend(report)
	s.logger.Debug().Str("agent", agentID).Int("samples", report.Samples).
		Dur("window", window).Msg("analyzed")
	return report, nil
}

// baselines returns, per session present in states, the last record of that
// session written before from
func (s *Service) baselines(ctx context.Context, agentID string, from time.Time, states []*model.State) (map[string]*model.State, error) {
	ret := make(map[string]*model.State)
	seen := make(map[string]bool)
	for _, state := range states {
		if seen[state.SessionID] {
			continue
		}
		seen[state.SessionID] = true
		query := criteria.New().Agent(agentID).Session(state.SessionID).Until(from.Add(-time.Nanosecond)).Desc().WithLimit(1)
		prior, err := s.store.QueryRange(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(prior) > 0 {
			ret[state.SessionID] = prior[0]
		}
	}
	return ret, nil
}

// Summarize aggregates states, ordered by timestamp, into a report without
// recommendations. Cumulative counters are kept per session, so they are
// taken from the last record of each session relative to that session's
// baseline, the last record before the window, then summed.
func Summarize(agentID string, from, to time.Time, states []*model.State, baselines map[string]*model.State) *Report {
	report := &Report{
		AgentID:       agentID,
		From:          from,
		To:            to,
		Samples:       len(states),
		FocusPatterns: make(map[string]*FocusPattern),
		LoadTrends:    make(map[int]*LoadTrend),
	}
	if len(states) == 0 {
		return report
	}
	metrics := &report.Efficiency
	overloads := 0
	for _, state := range states {
		efficiency := state.Attention.Efficiency
		utilization := state.CognitiveLoad.Utilization
		metrics.AvgFocusQuality += efficiency.FocusQuality
		metrics.AvgTaskSwitchingCost += efficiency.TaskSwitchingCost
		metrics.AvgDistractionLevel += efficiency.DistractionLevel
		metrics.AvgAttentionStability += efficiency.AttentionStability
		metrics.AvgCognitiveLoad += utilization
		metrics.AvgTotalAllocation += state.Attention.TotalAllocation
		if state.CognitiveLoad.Overload {
			overloads++
		}

		taskType := state.PrimaryTaskType()
		if taskType == "" {
			taskType = UnassignedTaskType
		}
		pattern, ok := report.FocusPatterns[taskType]
		if !ok {
			pattern = &FocusPattern{TaskType: taskType}
			report.FocusPatterns[taskType] = pattern
		}
		pattern.Samples++
		if state.Attention.Primary != nil {
			pattern.AvgFocus += state.Attention.Primary.Focus
		}
		pattern.AvgFocusQuality += efficiency.FocusQuality
		pattern.AvgLoad += utilization

		hour := state.Timestamp.UTC().Hour()
		trend, ok := report.LoadTrends[hour]
		if !ok {
			trend = &LoadTrend{Hour: hour}
			report.LoadTrends[hour] = trend
		}
		trend.Samples++
		trend.AvgLoad += utilization
		if utilization > trend.PeakLoad {
			trend.PeakLoad = utilization
		}
		if state.CognitiveLoad.Overload {
			trend.Overloads++
		}
	}
	n := float64(len(states))
	metrics.AvgFocusQuality /= n
	metrics.AvgTaskSwitchingCost /= n
	metrics.AvgDistractionLevel /= n
	metrics.AvgAttentionStability /= n
	metrics.AvgCognitiveLoad /= n
	metrics.AvgTotalAllocation /= n
	metrics.OverloadRate = float64(overloads) / n
	for _, pattern := range report.FocusPatterns {
		count := float64(pattern.Samples)
		pattern.AvgFocus /= count
		pattern.AvgFocusQuality /= count
		pattern.AvgLoad /= count
	}
	for _, trend := range report.LoadTrends {
		trend.AvgLoad /= float64(trend.Samples)
	}

	latest := make(map[string]*model.State)
	for _, state := range states {
		latest[state.SessionID] = state
	}
	var stats model.DistractionStats
	switches := 0
	for sessionID, last := range latest {
		total, filtered, switchCount := windowDelta(last, baselines[sessionID])
		stats.Total += total
		stats.Filtered += filtered
		switches += switchCount
	}
	report.Distraction = Effectiveness{Total: stats.Total, Filtered: stats.Filtered}
	if stats.Total > 0 {
		report.Distraction.Ratio = float64(stats.Filtered) / float64(stats.Total)
	}
	metrics.Switches = switches
	return report
}

// windowDelta returns the distraction and switch counters last accumulated
// since baseline. A counter that went backwards restarted within the window
// and is taken as is.
func windowDelta(last, baseline *model.State) (total, filtered, switches int) {
	stats := last.Distractions.Stats
	switches = last.ContextSwitching.SwitchCount
	if baseline == nil {
		return stats.Total, stats.Filtered, switches
	}
	total = stats.Total - baseline.Distractions.Stats.Total
	filtered = stats.Filtered - baseline.Distractions.Stats.Filtered
	if total < 0 || filtered < 0 {
		total, filtered = stats.Total, stats.Filtered
	}
	if delta := switches - baseline.ContextSwitching.SwitchCount; delta >= 0 {
		switches = delta
	}
	return total, filtered, switches
}

func (s *Service) recommend(report *Report) []string {
	if report.Samples == 0 {
		return nil
	}
	var ret []string
	if report.Efficiency.AvgFocusQuality < s.config.MinFocusQuality {
		ret = append(ret, RecommendFocus)
	}
	if report.Efficiency.AvgDistractionLevel > s.config.MaxDistractionLevel {
		ret = append(ret, RecommendDistraction)
	}
	for _, trend := range report.LoadTrends {
		if trend.AvgLoad > s.config.MaxHourlyLoad {
			ret = append(ret, RecommendLoad)
			break
		}
	}
	if report.Efficiency.AvgTaskSwitchingCost > s.config.MaxSwitchingCost {
		ret = append(ret, RecommendSwitching)
	}
	return ret
}

// Stats returns the latest record summary of agentID, or of every agent when
// agentID is empty, with the in-process counters.
func (s *Service) Stats(ctx context.Context, agentID string) (*Stats, error) {
	ctx, cancel := ctxutil.WithDefaultTimeout(ctx, s.timeout)
	defer cancel()
	ret := &Stats{GeneratedAt: clock.Now()}
	if agentID != "" {
		state, err := s.store.FindLatest(ctx, agentID, "")
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				return nil, types.NewAgentStateNotFoundError(agentID, "")
			}
			return nil, dao.Classify("stats", err)
		}
		ret.Agents = append(ret.Agents, s.agentStats(state))
		if tracker, ok := s.progress.Get(agentID); ok {
			ret.Totals = tracker
		}
		return ret, nil
	}
	states, err := s.store.QueryRange(ctx, criteria.New().Desc())
	if err != nil {
		return nil, dao.Classify("stats", err)
	}
	seen := make(map[string]bool)
	for _, state := range states {
		if seen[state.AgentID] {
			continue
		}
		seen[state.AgentID] = true
		ret.Agents = append(ret.Agents, s.agentStats(state))
	}
	sort.Slice(ret.Agents, func(i, j int) bool { return ret.Agents[i].AgentID < ret.Agents[j].AgentID })
	ret.Totals = s.progress.Total()
	return ret, nil
}

func (s *Service) agentStats(state *model.State) *AgentStats {
	ret := &AgentStats{
		AgentID:         state.AgentID,
		SessionID:       state.SessionID,
		StateID:         state.ID,
		Version:         state.Version,
		Timestamp:       state.Timestamp,
		PrimaryTaskID:   state.PrimaryTaskID(),
		TotalAllocation: state.Attention.TotalAllocation,
		Utilization:     state.CognitiveLoad.Utilization,
		Overload:        state.CognitiveLoad.Overload,
		DeepFocusMode:   state.Distractions.Protection.DeepFocusMode,
		QueueDepth:      state.PriorityQueue.Depths(),
		Distractions:    state.Distractions.Stats,
		SwitchCount:     state.ContextSwitching.SwitchCount,
		Session:         state.Analytics.Session,
	}
	for _, secondary := range state.Attention.Secondary {
		if !secondary.Deferred {
			ret.ActiveSecondary++
		}
	}
	if tracker, ok := s.progress.Get(state.AgentID); ok {
		ret.Progress = &tracker
	}
	return ret
}
