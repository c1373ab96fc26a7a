package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/attention/model"
	"github.com/viant/attention/model/load"
	"github.com/viant/attention/model/types"
)

func TestAllocator_Allocate(t *testing.T) {
	testCases := []struct {
		description     string
		request         *model.Request
		utilization     float64
		expectPrimary   float64
		expectSecondary []float64
		expectDeferred  []string
		expectTotal     float64
	}{
		{
			description: "critical primary without secondaries",
			request: &model.Request{AgentID: "a", Primary: model.Task{TaskID: "p", Priority: model.PriorityCritical, Complexity: 0.2},
				Context: model.ContextualFactors{Urgency: 0.9}},
			utilization:   0.48,
			expectPrimary: 0.9 - 0.3*0.48 + 0.10 + 0.09,
			expectTotal:   0.9 - 0.3*0.48 + 0.10 + 0.09,
		},
		{
			description: "remaining budget split evenly under secondary caps",
			request: &model.Request{AgentID: "a", Primary: model.Task{TaskID: "p", Priority: model.PriorityMedium},
				Secondary: []model.Task{{TaskID: "s1", MaxFocus: 0.2}, {TaskID: "s2", MaxFocus: 0.2}}},
			utilization:     2.0 / 3.0,
			expectPrimary:   0.7,
			expectSecondary: []float64{0.15, 0.15},
			expectTotal:     1.0,
		},
		{
			description: "secondary capped by declared max focus",
			request: &model.Request{AgentID: "a", Primary: model.Task{TaskID: "p", Priority: model.PriorityMedium},
				Secondary: []model.Task{{TaskID: "s1", MaxFocus: 0.1}, {TaskID: "s2"}}},
			utilization:     2.0 / 3.0,
			expectPrimary:   0.7,
			expectSecondary: []float64{0.1, 0.15},
			expectTotal:     0.95,
		},
		{
			description: "excess secondaries deferred in request order",
			request: &model.Request{AgentID: "a", Primary: model.Task{TaskID: "p", Priority: model.PriorityLow},
				Secondary: []model.Task{{TaskID: "s1"}, {TaskID: "s2"}, {TaskID: "s3"}, {TaskID: "s4"}, {TaskID: "s5"}}},
			utilization:     1.0,
			expectPrimary:   0.6,
			expectSecondary: []float64{0.4 / 3, 0.4 / 3, 0.4 / 3, 0, 0},
			expectDeferred:  []string{"s4", "s5"},
			expectTotal:     1.0,
		},
		{
			description: "required focus raises primary",
			request: &model.Request{AgentID: "a", Primary: model.Task{TaskID: "p", Priority: model.PriorityMedium, RequiredFocus: 0.9},
				Secondary: []model.Task{{TaskID: "s1"}}},
			utilization:     0.5,
			expectPrimary:   0.9,
			expectSecondary: []float64{0.1},
			expectTotal:     1.0,
		},
	}

	allocator := NewAllocator(DefaultConfig())
	for _, testCase := range testCases {
		assessment := &load.Assessment{Current: testCase.utilization, Capacity: 1, Utilization: testCase.utilization}
		actual, err := allocator.Allocate(testCase.request, assessment)
		require.NoError(t, err, testCase.description)
		assert.InDelta(t, testCase.expectPrimary, actual.Primary.Focus, 1e-9, testCase.description)
		require.Len(t, actual.Secondary, len(testCase.expectSecondary), testCase.description)
		for i, expect := range testCase.expectSecondary {
			assert.InDelta(t, expect, actual.Secondary[i].Focus, 1e-9, testCase.description)
		}
		assert.EqualValues(t, testCase.expectDeferred, actual.Deferred, testCase.description)
		assert.InDelta(t, testCase.expectTotal, actual.TotalAllocation, 1e-9, testCase.description)
		assert.LessOrEqual(t, actual.TotalAllocation, 1.0+model.Epsilon, testCase.description)
	}
}

func TestAllocator_AllocationError(t *testing.T) {
	allocator := NewAllocator(DefaultConfig())
	request := &model.Request{AgentID: "a", Primary: model.Task{TaskID: "p", RequiredFocus: 1.2}}
	_, err := allocator.Allocate(request, &load.Assessment{Capacity: 1})
	require.Error(t, err)
	assert.True(t, types.IsAllocation(err))
	assert.True(t, types.IsValidation(err))
}

func TestAllocator_Bounds(t *testing.T) {
	allocator := NewAllocator(DefaultConfig())
	priorities := []model.Priority{model.PriorityCritical, model.PriorityHigh, model.PriorityMedium, model.PriorityLow}
	for _, priority := range priorities {
		for u := 0.0; u <= 1.0; u += 0.05 {
			for urgency := 0.0; urgency <= 1.0; urgency += 0.25 {
				request := &model.Request{AgentID: "a", Primary: model.Task{TaskID: "p", Priority: priority},
					Secondary: []model.Task{{TaskID: "s1"}, {TaskID: "s2"}, {TaskID: "s3"}, {TaskID: "s4"}},
					Context:   model.ContextualFactors{Urgency: urgency}}
				actual, err := allocator.Allocate(request, &load.Assessment{Capacity: 1, Utilization: u})
				require.NoError(t, err)
				assert.LessOrEqual(t, actual.TotalAllocation, 1.0+model.Epsilon)
				assert.GreaterOrEqual(t, actual.Primary.Focus, 0.6)
			}
		}
	}
}

func TestAllocator_CriticalNotBelowLow(t *testing.T) {
	allocator := NewAllocator(DefaultConfig())
	for u := 0.0; u <= 1.0; u += 0.1 {
		for urgency := 0.0; urgency <= 1.0; urgency += 0.2 {
			critical := allocator.PrimaryFocus(model.PriorityCritical, urgency, u)
			low := allocator.PrimaryFocus(model.PriorityLow, urgency, u)
			assert.GreaterOrEqual(t, critical, low)
		}
	}
}

func TestEfficiency(t *testing.T) {
	testCases := []struct {
		description string
		utilization float64
		secondary   int
		expect      model.Efficiency
	}{
		{description: "idle", expect: model.Efficiency{FocusQuality: 1, DistractionLevel: 0.1, AttentionStability: 1}},
		{description: "half load two secondaries", utilization: 0.5, secondary: 2,
			expect: model.Efficiency{FocusQuality: 0.6, TaskSwitchingCost: 0.25, DistractionLevel: 0.35, AttentionStability: 0.65}},
		{description: "clamped", utilization: 1, secondary: 10,
			expect: model.Efficiency{FocusQuality: 0, TaskSwitchingCost: 1, DistractionLevel: 0.9, AttentionStability: 0}},
	}

	for _, testCase := range testCases {
		actual := Efficiency(testCase.utilization, testCase.secondary)
		assert.InDelta(t, testCase.expect.FocusQuality, actual.FocusQuality, 1e-9, testCase.description)
		assert.InDelta(t, testCase.expect.TaskSwitchingCost, actual.TaskSwitchingCost, 1e-9, testCase.description)
		assert.InDelta(t, testCase.expect.DistractionLevel, actual.DistractionLevel, 1e-9, testCase.description)
		assert.InDelta(t, testCase.expect.AttentionStability, actual.AttentionStability, 1e-9, testCase.description)
	}
}
