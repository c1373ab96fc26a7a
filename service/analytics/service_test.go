package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/attention/internal/clock"
	"github.com/viant/attention/model"
	"github.com/viant/attention/model/types"
	"github.com/viant/attention/progress"
	"github.com/viant/attention/service/dao/state/memory"
	"github.com/viant/attention/service/dao/state/storetest"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func sample(agentID string, version int64, at time.Time, utilization float64, taskType string, efficiency model.Efficiency) *model.State {
	state := storetest.NewState(agentID, "", version, at, utilization)
	state.Attention.Primary.TaskType = taskType
	state.Attention.Efficiency = efficiency
	return state
}

func TestSummarize(t *testing.T) {
	good := model.Efficiency{FocusQuality: 0.8, TaskSwitchingCost: 0.1, DistractionLevel: 0.2, AttentionStability: 0.9}
	poor := model.Efficiency{FocusQuality: 0.4, TaskSwitchingCost: 0.5, DistractionLevel: 0.7, AttentionStability: 0.5}

	baseline := sample("agent-1", 1, base.Add(-time.Hour), 0.2, "analysis", good)
	baseline.Distractions.Stats = model.DistractionStats{Total: 4, Filtered: 1}
	baseline.ContextSwitching.SwitchCount = 2

	states := []*model.State{
		sample("agent-1", 2, base, 0.4, "analysis", good),
		sample("agent-1", 3, base.Add(10*time.Minute), 0.6, "analysis", good),
		sample("agent-1", 4, base.Add(70*time.Minute), 0.99, "conversation", poor),
	}
	states[2].CognitiveLoad.Overload = true
	states[2].Distractions.Stats = model.DistractionStats{Total: 14, Filtered: 9}
	states[2].ContextSwitching.SwitchCount = 3

	testCases := []struct {
		description  string
		baseline     *model.State
		expectTotal  int
		expectRatio  float64
		expectSwitch int
	}{
		{description: "relative to baseline", baseline: baseline, expectTotal: 10, expectRatio: 0.8, expectSwitch: 1},
		{description: "without baseline", expectTotal: 14, expectRatio: 9.0 / 14.0, expectSwitch: 3},
	}
	for _, testCase := range testCases {
		var baselines map[string]*model.State
		if testCase.baseline != nil {
			baselines = map[string]*model.State{"": testCase.baseline}
		}
		report := Summarize("agent-1", base, base.Add(2*time.Hour), states, baselines)
		assert.Equal(t, 3, report.Samples, testCase.description)
		assert.InDelta(t, (0.4+0.6+0.99)/3, report.Efficiency.AvgCognitiveLoad, 1e-9, testCase.description)
		assert.InDelta(t, (0.8+0.8+0.4)/3, report.Efficiency.AvgFocusQuality, 1e-9, testCase.description)
		assert.InDelta(t, 1.0/3, report.Efficiency.OverloadRate, 1e-9, testCase.description)
		assert.Equal(t, testCase.expectTotal, report.Distraction.Total, testCase.description)
		assert.InDelta(t, testCase.expectRatio, report.Distraction.Ratio, 1e-9, testCase.description)
		assert.Equal(t, testCase.expectSwitch, report.Efficiency.Switches, testCase.description)

		require.Len(t, report.FocusPatterns, 2, testCase.description)
		analysis := report.FocusPatterns["analysis"]
		assert.Equal(t, 2, analysis.Samples)
		assert.InDelta(t, 0.5, analysis.AvgLoad, 1e-9)
		assert.InDelta(t, 0.8, analysis.AvgFocus, 1e-9)

		require.Len(t, report.LoadTrends, 2, testCase.description)
		assert.Equal(t, 2, report.LoadTrends[9].Samples)
		assert.InDelta(t, 0.5, report.LoadTrends[9].AvgLoad, 1e-9)
		assert.InDelta(t, 0.99, report.LoadTrends[10].PeakLoad, 1e-9)
		assert.Equal(t, 1, report.LoadTrends[10].Overloads)
	}

	empty := Summarize("agent-1", base, base, nil, nil)
	assert.Equal(t, 0, empty.Samples)
	assert.Empty(t, empty.FocusPatterns)
}

func TestService_AnalyzeSessions(t *testing.T) {
	clock.NowFunc = func() time.Time { return base.Add(time.Hour) }
	defer func() { clock.NowFunc = time.Now }()

	ctx := context.Background()
	store := memory.New()
	srv, err := New(WithStore(store))
	require.NoError(t, err)

	efficiency := model.Efficiency{FocusQuality: 0.8}
	insert := func(sessionID string, version int64, at time.Time, stats model.DistractionStats, switches int) {
		state := sample("agent-s", version, at, 0.4, "analysis", efficiency)
		state.SessionID = sessionID
		state.Distractions.Stats = stats
		state.ContextSwitching.SwitchCount = switches
		_, err := store.Insert(ctx, state)
		require.NoError(t, err)
	}
	insert("a", 1, base.Add(-2*time.Hour), model.DistractionStats{Total: 3, Filtered: 1}, 1)
	insert("a", 2, base.Add(5*time.Minute), model.DistractionStats{Total: 9, Filtered: 7}, 2)
	insert("b", 1, base.Add(10*time.Minute), model.DistractionStats{}, 0)
	insert("c", 1, base.Add(-time.Hour), model.DistractionStats{Total: 5, Filtered: 5}, 0)
	insert("c", 2, base.Add(15*time.Minute), model.DistractionStats{Total: 7, Filtered: 5}, 1)

	testCases := []struct {
		description    string
		window         time.Duration
		expectSamples  int
		expectTotal    int
		expectFiltered int
		expectSwitches int
	}{
		{description: "sessions summed against own baselines", window: time.Hour, expectSamples: 3, expectTotal: 8, expectFiltered: 6, expectSwitches: 2},
		{description: "whole history", window: 24 * time.Hour, expectSamples: 5, expectTotal: 16, expectFiltered: 12, expectSwitches: 3},
	}
	for _, testCase := range testCases {
		report, err := srv.Analyze(ctx, "agent-s", testCase.window)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectSamples, report.Samples, testCase.description)
		assert.Equal(t, testCase.expectTotal, report.Distraction.Total, testCase.description)
		assert.Equal(t, testCase.expectFiltered, report.Distraction.Filtered, testCase.description)
		assert.Equal(t, testCase.expectSwitches, report.Efficiency.Switches, testCase.description)
	}
}

func TestService_Analyze(t *testing.T) {
	clock.NowFunc = func() time.Time { return base.Add(3 * time.Hour) }
	defer func() { clock.NowFunc = time.Now }()

	ctx := context.Background()
	store := memory.New()
	registry := progress.NewRegistry(nil)
	srv, err := New(WithStore(store), WithProgress(registry))
	require.NoError(t, err)

	good := model.Efficiency{FocusQuality: 0.9, TaskSwitchingCost: 0.1, DistractionLevel: 0.1, AttentionStability: 0.9}
	poor := model.Efficiency{FocusQuality: 0.3, TaskSwitchingCost: 0.6, DistractionLevel: 0.8, AttentionStability: 0.4}
	old := sample("agent-1", 1, base.Add(-48*time.Hour), 0.1, "analysis", good)
	old.Distractions.Stats = model.DistractionStats{Total: 2, Filtered: 2}
	_, err = store.Insert(ctx, old)
	require.NoError(t, err)
	for i, utilization := range []float64{0.85, 0.9, 0.92} {
		state := sample("agent-1", int64(i+2), base.Add(time.Duration(i)*time.Minute), utilization, "planning", poor)
		state.Distractions.Stats = model.DistractionStats{Total: 2 + 2*(i+1), Filtered: 2 + i + 1}
		_, err = store.Insert(ctx, state)
		require.NoError(t, err)
	}
	_, err = store.Insert(ctx, sample("agent-2", 1, base, 0.3, "analysis", good))
	require.NoError(t, err)

	testCases := []struct {
		description      string
		agentID          string
		window           time.Duration
		expectSamples    int
		expectRecommends []string
		expectErr        func(err error) bool
	}{
		{
			description:      "poor window",
			agentID:          "agent-1",
			window:           6 * time.Hour,
			expectSamples:    3,
			expectRecommends: []string{RecommendFocus, RecommendDistraction, RecommendLoad, RecommendSwitching},
		},
		{
			description:      "default window includes nothing older than a day",
			agentID:          "agent-1",
			expectSamples:    3,
			expectRecommends: []string{RecommendFocus, RecommendDistraction, RecommendLoad, RecommendSwitching},
		},
		{
			description:   "healthy agent",
			agentID:       "agent-2",
			window:        6 * time.Hour,
			expectSamples: 1,
		},
		{
			description:   "empty window",
			agentID:       "agent-1",
			window:        time.Minute,
			expectSamples: 0,
		},
		{description: "unknown agent", agentID: "nobody", window: time.Hour, expectErr: types.IsAgentStateNotFound},
		{description: "missing agent", window: time.Hour, expectErr: types.IsValidation},
	}
	for _, testCase := range testCases {
		report, err := srv.Analyze(ctx, testCase.agentID, testCase.window)
		if testCase.expectErr != nil {
			assert.True(t, testCase.expectErr(err), testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectSamples, report.Samples, testCase.description)
		assert.EqualValues(t, testCase.expectRecommends, report.Recommendations, testCase.description)
	}

	report, err := srv.Analyze(ctx, "agent-1", 6*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Distraction.Total)
	assert.Equal(t, 3, report.Distraction.Filtered)
	assert.InDelta(t, 0.5, report.Distraction.Ratio, 1e-9)
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	registry := progress.NewRegistry(nil)
	srv, err := New(WithStore(store), WithProgress(registry))
	require.NoError(t, err)

	for _, agentID := range []string{"agent-2", "agent-1"} {
		for version := int64(1); version <= 2; version++ {
			state := storetest.NewState(agentID, "", version, base.Add(time.Duration(version)*time.Second), 0.3*float64(version))
			state.PriorityQueue.Add(model.PriorityHigh, model.QueueItem{TaskID: "q"})
			_, err = store.Insert(ctx, state)
			require.NoError(t, err)
		}
	}
	registry.Update("agent-1", progress.Delta{Allocations: 2})
	registry.Update("agent-2", progress.Delta{Allocations: 1, QueueOps: 1})

	all, err := srv.Stats(ctx, "")
	require.NoError(t, err)
	require.Len(t, all.Agents, 2)
	assert.Equal(t, "agent-1", all.Agents[0].AgentID)
	assert.EqualValues(t, 2, all.Agents[0].Version)
	assert.InDelta(t, 0.6, all.Agents[0].Utilization, 1e-9)
	assert.Equal(t, 1, all.Agents[0].QueueDepth[model.PriorityHigh])
	require.NotNil(t, all.Agents[0].Progress)
	assert.Equal(t, 2, all.Agents[0].Progress.Allocations)
	assert.Equal(t, 3, all.Totals.Allocations)

	one, err := srv.Stats(ctx, "agent-2")
	require.NoError(t, err)
	require.Len(t, one.Agents, 1)
	assert.Equal(t, 1, one.Totals.QueueOps)

	_, err = srv.Stats(ctx, "nobody")
	assert.True(t, types.IsAgentStateNotFound(err))

	_, err = New()
	assert.Error(t, err)
}
