package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityQueue_Add(t *testing.T) {
	testCases := []struct {
		description string
		existing    map[Priority][]string
		tier        Priority
		taskID      string
		expect      bool
		expectTier  Priority
	}{
		{description: "add to empty queue", tier: PriorityHigh, taskID: "t1", expect: true, expectTier: PriorityHigh},
		{description: "unknown tier", tier: Priority("urgent"), taskID: "t1", expect: false},
		{description: "duplicate in same tier", existing: map[Priority][]string{PriorityLow: {"t1"}}, tier: PriorityLow, taskID: "t1", expect: false, expectTier: PriorityLow},
		{description: "duplicate in other tier", existing: map[Priority][]string{PriorityCritical: {"t1"}}, tier: PriorityLow, taskID: "t1", expect: false, expectTier: PriorityCritical},
	}

	for _, testCase := range testCases {
		queue := &PriorityQueue{}
		for priority, ids := range testCase.existing {
			for _, id := range ids {
				assert.True(t, queue.Add(priority, QueueItem{TaskID: id}), testCase.description)
			}
		}
		actual := queue.Add(testCase.tier, QueueItem{TaskID: testCase.taskID})
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
		tier, _, ok := queue.Find(testCase.taskID)
		if testCase.expectTier == "" {
			assert.False(t, ok, testCase.description)
			continue
		}
		assert.True(t, ok, testCase.description)
		assert.EqualValues(t, testCase.expectTier, tier, testCase.description)
	}
}

func TestPriorityQueue_AddDefaultsDependencies(t *testing.T) {
	queue := &PriorityQueue{}
	assert.True(t, queue.Add(PriorityMedium, QueueItem{TaskID: "t1"}))
	assert.NotNil(t, queue.Medium[0].Dependencies)
	assert.Len(t, queue.Medium[0].Dependencies, 0)
}

func TestPriorityQueue_RemoveIdempotent(t *testing.T) {
	queue := &PriorityQueue{}
	queue.Add(PriorityHigh, QueueItem{TaskID: "a"})
	queue.Add(PriorityHigh, QueueItem{TaskID: "b"})
	queue.Add(PriorityLow, QueueItem{TaskID: "c"})

	once := queue.Clone()
	assert.True(t, once.Remove("b"))
	twice := once.Clone()
	assert.False(t, twice.Remove("b"))
	assert.EqualValues(t, once, twice)
	assert.EqualValues(t, []QueueItem{{TaskID: "a", Dependencies: []string{}}}, once.High)
	assert.Equal(t, 3, queue.Len())
	assert.Equal(t, 2, once.Len())
	assert.EqualValues(t, map[Priority]int{PriorityCritical: 0, PriorityHigh: 1, PriorityMedium: 0, PriorityLow: 1}, once.Depths())
}

func TestPriorityQueue_CloneIsDeep(t *testing.T) {
	deadline := time.Unix(100, 0)
	queue := &PriorityQueue{}
	queue.Add(PriorityCritical, QueueItem{TaskID: "a", Deadline: &deadline, Dependencies: []string{"x"}})
	clone := queue.Clone()
	clone.Critical[0].Dependencies[0] = "y"
	*clone.Critical[0].Deadline = time.Unix(200, 0)
	assert.Equal(t, "x", queue.Critical[0].Dependencies[0])
	assert.Equal(t, deadline, *queue.Critical[0].Deadline)
}
