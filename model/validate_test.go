package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/attention/model/types"
)

func TestState_Validate(t *testing.T) {
	valid := func() *State {
		return &State{
			AgentID: "agent-1",
			Attention: Attention{
				Primary:         &PrimaryFocus{TaskID: "p", Focus: 0.7},
				Secondary:       []SecondaryFocus{{TaskID: "s1", Focus: 0.15}, {TaskID: "s2", Focus: 0.15}},
				TotalAllocation: 1.0,
			},
			CognitiveLoad: CognitiveLoad{Current: 0.5, Capacity: 1, Utilization: 0.5},
		}
	}
	testCases := []struct {
		description string
		mutate      func(s *State)
		expectErr   bool
	}{
		{description: "valid", mutate: func(s *State) {}},
		{description: "missing agent", mutate: func(s *State) { s.AgentID = "" }, expectErr: true},
		{description: "primary focus above one", mutate: func(s *State) { s.Attention.Primary.Focus = 1.1 }, expectErr: true},
		{description: "negative secondary", mutate: func(s *State) { s.Attention.Secondary[0].Focus = -0.1 }, expectErr: true},
		{description: "total mismatch", mutate: func(s *State) { s.Attention.TotalAllocation = 0.9 }, expectErr: true},
		{description: "over budget", mutate: func(s *State) {
			s.Attention.Primary.Focus = 0.8
			s.Attention.TotalAllocation = 1.1
		}, expectErr: true},
		{description: "overload flag not set", mutate: func(s *State) { s.CognitiveLoad.Utilization = 0.97 }, expectErr: true},
		{description: "overload flag set", mutate: func(s *State) {
			s.CognitiveLoad.Utilization = 0.97
			s.CognitiveLoad.Overload = true
		}},
		{description: "task in two tiers", mutate: func(s *State) {
			s.PriorityQueue.Critical = []QueueItem{{TaskID: "x"}}
			s.PriorityQueue.Low = []QueueItem{{TaskID: "x"}}
		}, expectErr: true},
	}

	for _, testCase := range testCases {
		state := valid()
		testCase.mutate(state)
		err := state.Validate(1.0, 0.95)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			assert.True(t, types.IsValidation(err), testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
	}
}

func TestRequest_Validate(t *testing.T) {
	testCases := []struct {
		description string
		request     *Request
		expectErr   bool
	}{
		{description: "valid", request: &Request{AgentID: "a", Primary: Task{TaskID: "p", Complexity: 0.2}}},
		{description: "nil", expectErr: true},
		{description: "missing agent", request: &Request{Primary: Task{TaskID: "p"}}, expectErr: true},
		{description: "missing task id", request: &Request{AgentID: "a"}, expectErr: true},
		{description: "bad priority", request: &Request{AgentID: "a", Primary: Task{TaskID: "p", Priority: "urgent"}}, expectErr: true},
		{description: "complexity out of range", request: &Request{AgentID: "a", Primary: Task{TaskID: "p", Complexity: 2}}, expectErr: true},
		{description: "duplicate secondary", request: &Request{AgentID: "a", Primary: Task{TaskID: "p"}, Secondary: []Task{{TaskID: "p"}}}, expectErr: true},
		{description: "urgency out of range", request: &Request{AgentID: "a", Primary: Task{TaskID: "p"}, Context: ContextualFactors{Urgency: 1.5}}, expectErr: true},
		{description: "negative required focus", request: &Request{AgentID: "a", Primary: Task{TaskID: "p", RequiredFocus: -1}}, expectErr: true},
	}

	for _, testCase := range testCases {
		err := testCase.request.Validate()
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
		assert.Equal(t, PriorityMedium, testCase.request.Primary.Priority, testCase.description)
	}
}

func TestNextTimestamp(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.Equal(t, now, NextTimestamp(nil, now))
	prior := &State{Timestamp: now}
	assert.Equal(t, now.Add(time.Nanosecond), NextTimestamp(prior, now))
	assert.Equal(t, now.Add(time.Second), NextTimestamp(prior, now.Add(time.Second)))
}

func TestDistractions_SetDeepFocusAudit(t *testing.T) {
	d := &Distractions{}
	at := time.Unix(10, 0)
	d.SetDeepFocus(true, FocusSourceAllocation, at)
	d.SetDeepFocus(false, FocusSourceConfigure, at.Add(time.Second))
	assert.False(t, d.Protection.DeepFocusMode)
	assert.Len(t, d.Audit, 2)
	assert.Equal(t, FocusSourceConfigure, d.Audit[1].Source)
	for i := 0; i < MaxAuditEntries+5; i++ {
		d.SetDeepFocus(true, FocusSourceConfigure, at)
	}
	assert.Len(t, d.Audit, MaxAuditEntries)
}
