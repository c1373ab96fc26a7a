package criteria

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/attention/model"
)

func TestQuery_Match(t *testing.T) {
	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	state := &model.State{
		AgentID:       "a1",
		SessionID:     "s1",
		Timestamp:     at,
		CognitiveLoad: model.CognitiveLoad{Utilization: 0.97, Overload: true},
		Attention:     model.Attention{Primary: &model.PrimaryFocus{TaskType: "Analysis"}},
	}
	testCases := []struct {
		description string
		query       *Query
		expect      bool
	}{
		{description: "empty query", query: New(), expect: true},
		{description: "nil query", query: nil, expect: true},
		{description: "agent match", query: New().Agent("a1"), expect: true},
		{description: "agent mismatch", query: New().Agent("a2"), expect: false},
		{description: "session mismatch", query: New().Agent("a1").Session("s2"), expect: false},
		{description: "window inclusive", query: New().Between(at, at), expect: true},
		{description: "before window", query: New().Since(at.Add(time.Second)), expect: false},
		{description: "after window", query: New().Until(at.Add(-time.Second)), expect: false},
		{description: "overload", query: New().Overload(true), expect: true},
		{description: "not overload", query: New().Overload(false), expect: false},
		{description: "task type case insensitive", query: New().TaskType("analysis"), expect: true},
		{description: "min utilization", query: New().MinUtilization(0.98), expect: false},
	}
	for _, testCase := range testCases {
		assert.EqualValues(t, testCase.expect, testCase.query.Match(state), testCase.description)
	}
}

func TestQuery_Validate(t *testing.T) {
	at := time.Now()
	testCases := []struct {
		description string
		query       *Query
		expectErr   bool
	}{
		{description: "valid", query: New().Agent("a").Between(at.Add(-time.Hour), at)},
		{description: "empty agent", query: New().Agent(""), expectErr: true},
		{description: "dot segment agent", query: New().Agent(".."), expectErr: true},
		{description: "separator in agent", query: New().Agent("a/b"), expectErr: true},
		{description: "inverted window", query: New().Between(at, at.Add(-time.Hour)), expectErr: true},
		{description: "utilization range", query: New().MinUtilization(1.5), expectErr: true},
		{description: "negative limit", query: New().WithLimit(-1), expectErr: true},
		{description: "unknown kind", query: &Query{Predicates: []Predicate{{Kind: Kind(99)}}}, expectErr: true},
	}
	for _, testCase := range testCases {
		err := testCase.query.Validate()
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
	}
}

func TestQuery_Apply(t *testing.T) {
	base := time.Unix(1000, 0)
	states := []*model.State{{ID: "2", Timestamp: base.Add(2)}, {ID: "1", Timestamp: base.Add(1)}, {ID: "3", Timestamp: base.Add(3)}}
	actual := New().WithLimit(2).Apply(append([]*model.State(nil), states...))
	assert.Equal(t, []string{"1", "2"}, ids(actual))
	actual = New().Desc().WithLimit(1).Apply(append([]*model.State(nil), states...))
	assert.Equal(t, []string{"3"}, ids(actual))
	from, to := New().Since(base).Since(base.Add(5)).Until(base.Add(10)).Window()
	assert.Equal(t, base.Add(5), from)
	assert.Equal(t, base.Add(10), to)
}

func ids(states []*model.State) []string {
	var ret []string
	for _, s := range states {
		ret = append(ret, s.ID)
	}
	return ret
}
