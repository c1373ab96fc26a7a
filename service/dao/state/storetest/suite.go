// Package storetest holds the behaviour every dao.StateStore adapter must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/attention/model"
	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/service/dao/criteria"
)

// NewState returns a minimal valid record.
func NewState(agentID, sessionID string, version int64, at time.Time, utilization float64) *model.State {
	return &model.State{
		AgentID:   agentID,
		SessionID: sessionID,
		Timestamp: at,
		Version:   version,
		Attention: model.Attention{
			Primary:         &model.PrimaryFocus{TaskID: "t", TaskType: "analysis", Focus: 0.8},
			TotalAllocation: 0.8,
		},
		CognitiveLoad: model.CognitiveLoad{Current: utilization, Capacity: 1, Utilization: utilization, Overload: utilization > 0.95},
	}
}

// Run exercises store against the StateStore contract.
func Run(t *testing.T, newStore func(t *testing.T) dao.StateStore) {
	t.Run("find latest on empty store", func(t *testing.T) {
		store := newStore(t)
		_, err := store.FindLatest(context.Background(), "nobody", "")
		assert.True(t, errors.Is(err, dao.ErrNotFound))
	})

	t.Run("insert and find latest", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		id1, err := store.Insert(ctx, NewState("a1", "", 1, base, 0.4))
		require.NoError(t, err)
		id2, err := store.Insert(ctx, NewState("a1", "", 2, base.Add(time.Minute), 0.5))
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2)
		latest, err := store.FindLatest(ctx, "a1", "")
		require.NoError(t, err)
		assert.Equal(t, id2, latest.ID)
		assert.EqualValues(t, 2, latest.Version)
		assert.InDelta(t, 0.5, latest.CognitiveLoad.Utilization, 1e-9)
	})

	t.Run("insert rejects stale version", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Now()
		_, err := store.Insert(ctx, NewState("a1", "", 1, base, 0.4))
		require.NoError(t, err)
		_, err = store.Insert(ctx, NewState("a1", "", 1, base.Add(time.Second), 0.4))
		assert.True(t, errors.Is(err, dao.ErrConflict))
	})

	t.Run("session scope", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Now()
		_, err := store.Insert(ctx, NewState("a1", "s1", 1, base, 0.3))
		require.NoError(t, err)
		_, err = store.Insert(ctx, NewState("a1", "s2", 1, base.Add(time.Second), 0.6))
		require.NoError(t, err)
		latest, err := store.FindLatest(ctx, "a1", "s1")
		require.NoError(t, err)
		assert.Equal(t, "s1", latest.SessionID)
		latest, err = store.FindLatest(ctx, "a1", "")
		require.NoError(t, err)
		assert.Equal(t, "s2", latest.SessionID)
		_, err = store.FindLatest(ctx, "a1", "s3")
		assert.True(t, errors.Is(err, dao.ErrNotFound))
	})

	t.Run("update latest in place", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Now()
		_, err := store.Insert(ctx, NewState("a1", "", 1, base, 0.3))
		require.NoError(t, err)
		id, err := store.Insert(ctx, NewState("a1", "", 2, base.Add(time.Second), 0.3))
		require.NoError(t, err)
		updated, err := store.UpdateLatest(ctx, "a1", "", func(state *model.State) error {
			state.Timestamp = base.Add(2 * time.Second)
			state.PriorityQueue.Add(model.PriorityHigh, model.QueueItem{TaskID: "q1"})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, id, updated.ID)
		assert.EqualValues(t, 3, updated.Version)
		latest, err := store.FindLatest(ctx, "a1", "")
		require.NoError(t, err)
		assert.Equal(t, "q1", latest.PriorityQueue.High[0].TaskID)
		all, err := store.QueryRange(ctx, criteria.New().Agent("a1"))
		require.NoError(t, err)
		assert.Len(t, all, 2)
		_, err = store.Insert(ctx, NewState("a1", "", 3, base.Add(3*time.Second), 0.3))
		assert.True(t, errors.Is(err, dao.ErrConflict))
	})

	t.Run("update aborted by fn error", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		_, err := store.Insert(ctx, NewState("a1", "", 1, time.Now(), 0.3))
		require.NoError(t, err)
		boom := errors.New("boom")
		_, err = store.UpdateLatest(ctx, "a1", "", func(state *model.State) error {
			state.CognitiveLoad.Current = 0.9
			return boom
		})
		assert.True(t, errors.Is(err, boom))
		latest, err := store.FindLatest(ctx, "a1", "")
		require.NoError(t, err)
		assert.EqualValues(t, 1, latest.Version)
		assert.InDelta(t, 0.3, latest.CognitiveLoad.Current, 1e-9)
	})

	t.Run("update missing agent", func(t *testing.T) {
		store := newStore(t)
		_, err := store.UpdateLatest(context.Background(), "ghost", "", func(state *model.State) error { return nil })
		assert.True(t, errors.Is(err, dao.ErrNotFound))
	})

	t.Run("query range", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.CreateIndexes(ctx))
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			utilization := 0.2 * float64(i+1)
			_, err := store.Insert(ctx, NewState("a1", "", int64(i+1), base.Add(time.Duration(i)*time.Hour), utilization))
			require.NoError(t, err)
		}
		_, err := store.Insert(ctx, NewState("a2", "", 1, base, 0.99))
		require.NoError(t, err)

		testCases := []struct {
			description string
			query       *criteria.Query
			expect      []float64
		}{
			{description: "agent", query: criteria.New().Agent("a1"), expect: []float64{0.2, 0.4, 0.6, 0.8, 1.0}},
			{description: "window", query: criteria.New().Agent("a1").Between(base.Add(time.Hour), base.Add(3*time.Hour)), expect: []float64{0.4, 0.6, 0.8}},
			{description: "overload across agents", query: criteria.New().Overload(true), expect: []float64{0.99, 1.0}},
			{description: "min utilization desc limit", query: criteria.New().Agent("a1").MinUtilization(0.5).Desc().WithLimit(2), expect: []float64{1.0, 0.8}},
			{description: "task type", query: criteria.New().Agent("a1").TaskType("planning"), expect: nil},
		}
		for _, testCase := range testCases {
			actual, err := store.QueryRange(ctx, testCase.query)
			require.NoError(t, err, testCase.description)
			var utilizations []float64
			for _, state := range actual {
				utilizations = append(utilizations, state.CognitiveLoad.Utilization)
			}
			assert.InDeltaSlice(t, testCase.expect, utilizations, 1e-9, testCase.description)
			assert.Equal(t, len(testCase.expect), len(utilizations), testCase.description)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		_, err := store.Insert(ctx, nil)
		assert.True(t, errors.Is(err, dao.ErrNilEntity))
		_, err = store.Insert(ctx, NewState("", "", 1, time.Now(), 0.1))
		assert.True(t, errors.Is(err, dao.ErrInvalidID))
		_, err = store.QueryRange(ctx, criteria.New().MinUtilization(2))
		assert.Error(t, err)
	})

	t.Run("dot and separator agent ids", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		for _, agentID := range []string{".", "..", "a/b", "..\\x", "../escape"} {
			_, err := store.Insert(ctx, NewState(agentID, "", 1, time.Now(), 0.1))
			assert.True(t, errors.Is(err, dao.ErrInvalidID), agentID)
			_, err = store.FindLatest(ctx, agentID, "")
			assert.True(t, errors.Is(err, dao.ErrInvalidID), agentID)
			_, err = store.UpdateLatest(ctx, agentID, "", func(state *model.State) error { return nil })
			assert.True(t, errors.Is(err, dao.ErrInvalidID), agentID)
			_, err = store.QueryRange(ctx, criteria.New().Agent(agentID))
			assert.Error(t, err, agentID)
		}
		states, err := store.QueryRange(ctx, criteria.New())
		require.NoError(t, err)
		assert.Empty(t, states)
	})

	t.Run("cancelled context writes nothing", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.Insert(ctx, NewState("a1", "", 1, time.Now(), 0.1))
		assert.Error(t, err)
		_, err = store.FindLatest(context.Background(), "a1", "")
		assert.True(t, errors.Is(err, dao.ErrNotFound))
	})
}
