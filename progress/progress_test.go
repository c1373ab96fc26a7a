package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Update(t *testing.T) {
	var mu sync.Mutex
	var changes []Progress
	registry := NewRegistry(func(p Progress) {
		mu.Lock()
		changes = append(changes, p)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agentID := "a"
			if i%2 == 1 {
				agentID = "b"
			}
			registry.Update(agentID, Delta{Allocations: 1, Overloads: i % 5 / 4})
		}(i)
	}
	wg.Wait()

	testCases := []struct {
		description string
		agentID     string
		expectOK    bool
		expect      int
	}{
		{description: "even agent", agentID: "a", expectOK: true, expect: 25},
		{description: "odd agent", agentID: "b", expectOK: true, expect: 25},
		{description: "unknown agent", agentID: "c"},
	}
	for _, testCase := range testCases {
		actual, ok := registry.Get(testCase.agentID)
		assert.Equal(t, testCase.expectOK, ok, testCase.description)
		assert.Equal(t, testCase.expect, actual.Allocations, testCase.description)
	}

	total := registry.Total()
	assert.Equal(t, 50, total.Allocations)
	assert.Equal(t, 10, total.Overloads)
	assert.Len(t, changes, 50)
	snapshots := registry.Snapshots()
	assert.Len(t, snapshots, 2)
	assert.Equal(t, "a", snapshots[0].AgentID)
}

func TestProgress_NilSafe(t *testing.T) {
	var p *Progress
	p.Update(Delta{Allocations: 1})
	p.OnChange(nil)
	assert.Equal(t, Progress{}, p.Snapshot())
	var r *Registry
	r.Update("a", Delta{})
	_, ok := r.Get("a")
	assert.False(t, ok)
}
