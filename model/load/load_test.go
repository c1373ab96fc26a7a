package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/attention/model"
)

func TestAssess(t *testing.T) {
	cfg := DefaultConfig()
	testCases := []struct {
		description     string
		request         *model.Request
		prior           *model.State
		expectCurrent   float64
		expectOverload  bool
		expectWarning   bool
		expectDeferable []string
	}{
		{
			description: "floor plus weighted contributions",
			request: &model.Request{
				Primary: model.Task{TaskID: "t1", Complexity: 0.5},
				Context: model.ContextualFactors{CognitiveComplexity: 0.5, Interruptibility: 0.5},
			},
			expectCurrent: 0.3 + 0.2 + 0.1 + 0.05,
		},
		{
			description: "secondary tasks add load",
			request: &model.Request{
				Primary:   model.Task{TaskID: "t1", Complexity: 0.5},
				Secondary: []model.Task{{TaskID: "s1"}, {TaskID: "s2"}},
				Context:   model.ContextualFactors{CognitiveComplexity: 0.5, Interruptibility: 0.5},
			},
			expectCurrent: 0.3 + 0.2 + 0.2 + 0.1 + 0.05,
			expectWarning: true,
		},
		{
			description: "prior load carried over at 80%",
			request: &model.Request{
				Primary: model.Task{TaskID: "t1", Complexity: 0.1},
				Context: model.ContextualFactors{Interruptibility: 1},
			},
			prior:         &model.State{CognitiveLoad: model.CognitiveLoad{Utilization: 0.9}},
			expectCurrent: 0.72,
		},
		{
			description: "load clamped to capacity and overloaded",
			request: &model.Request{
				Primary: model.Task{TaskID: "t1", Complexity: 1},
				Secondary: []model.Task{
					{TaskID: "s1", Priority: model.PriorityCritical},
					{TaskID: "s2", Priority: model.PriorityLow},
					{TaskID: "s3", Priority: model.PriorityHigh},
				},
				Context: model.ContextualFactors{CognitiveComplexity: 1},
			},
			expectCurrent:   1.0,
			expectOverload:  true,
			expectWarning:   true,
			expectDeferable: []string{"s2", "s3"},
		},
	}

	for _, testCase := range testCases {
		actual := Assess(testCase.request, testCase.prior, cfg)
		assert.InDelta(t, testCase.expectCurrent, actual.Current, 1e-9, testCase.description)
		assert.InDelta(t, testCase.expectCurrent, actual.Utilization, 1e-9, testCase.description)
		assert.EqualValues(t, testCase.expectOverload, actual.Overload, testCase.description)
		assert.EqualValues(t, testCase.expectWarning, actual.Warning, testCase.description)
		if testCase.expectOverload {
			if assert.NotNil(t, actual.Shedding, testCase.description) {
				assert.EqualValues(t, testCase.expectDeferable, actual.Shedding.Deferrable, testCase.description)
				assert.True(t, actual.Shedding.Batch, testCase.description)
			}
		} else {
			assert.Nil(t, actual.Shedding, testCase.description)
		}
	}
}

func TestAssess_OverloadMatchesThreshold(t *testing.T) {
	cfg := DefaultConfig()
	for i := 0; i <= 100; i++ {
		complexity := float64(i) / 100
		for secondary := 0; secondary <= 4; secondary++ {
			request := &model.Request{Primary: model.Task{TaskID: "p", Complexity: complexity}}
			for j := 0; j < secondary; j++ {
				request.Secondary = append(request.Secondary, model.Task{TaskID: string(rune('a' + j))})
			}
			actual := Assess(request, nil, cfg)
			assert.Equal(t, actual.Utilization > cfg.OverloadThreshold, actual.Overload)
			assert.True(t, actual.Utilization >= 0 && actual.Utilization <= 1)
		}
	}
}

func TestBreakdownFor(t *testing.T) {
	conversation := BreakdownFor("conversation", 1.0)
	assert.InDelta(t, 0.8, conversation.Communication, 1e-9)
	analysis := BreakdownFor("Analysis", 0.5)
	assert.InDelta(t, 0.4, analysis.Processing, 1e-9)
	unknown := BreakdownFor("unknown", 0.5)
	assert.InDelta(t, 0.25, unknown.WorkingMemory, 1e-9)
	assert.EqualValues(t, BreakdownFor("chat", 0.6), BreakdownFor("conversation", 0.6))
}

func TestRecompute(t *testing.T) {
	cfg := DefaultConfig()
	load := &model.CognitiveLoad{Current: 1.2}
	Recompute(load, cfg)
	assert.EqualValues(t, 1.0, load.Capacity)
	assert.EqualValues(t, 1.0, load.Current)
	assert.True(t, load.Overload)

	load.Current = 0.5
	Recompute(load, cfg)
	assert.InDelta(t, 0.5, load.Utilization, 1e-9)
	assert.False(t, load.Overload)
}
