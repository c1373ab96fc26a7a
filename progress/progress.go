package progress

import (
	"sort"
	"sync"
	"time"

	"github.com/viant/attention/internal/clock"
)

// Delta represents an incremental counter change. Fields are signed.
type Delta struct {
	Allocations    int
	LoadUpdates    int
	QueueOps       int
	Configurations int
	Distractions   int
	Filtered       int
	Overloads      int
	Failures       int
}

// Progress keeps operation counters of a single agent. It is safe for
// concurrent use.
type Progress struct {
	AgentID   string    `json:"agentId"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Allocations    int `json:"allocations"`
	LoadUpdates    int `json:"loadUpdates"`
	QueueOps       int `json:"queueOps"`
	Configurations int `json:"configurations"`
	Distractions   int `json:"distractions"`
	Filtered       int `json:"filtered"`
	Overloads      int `json:"overloads"`
	Failures       int `json:"failures"`

	mu       sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta. The onChange callback, when set, is
// invoked with a copy outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.Allocations += d.Allocations
	p.LoadUpdates += d.LoadUpdates
	p.QueueOps += d.QueueOps
	p.Configurations += d.Configurations
	p.Distractions += d.Distractions
	p.Filtered += d.Filtered
	p.Overloads += d.Overloads
	p.Failures += d.Failures
	p.UpdatedAt = clock.Now()
	snapshot := p.copy()
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copy()
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

func (p *Progress) copy() Progress {
	return Progress{
		AgentID:        p.AgentID,
		StartedAt:      p.StartedAt,
		UpdatedAt:      p.UpdatedAt,
		Allocations:    p.Allocations,
		LoadUpdates:    p.LoadUpdates,
		QueueOps:       p.QueueOps,
		Configurations: p.Configurations,
		Distractions:   p.Distractions,
		Filtered:       p.Filtered,
		Overloads:      p.Overloads,
		Failures:       p.Failures,
	}
}

// Registry holds one tracker per agent.
type Registry struct {
	mu       sync.RWMutex
	agents   map[string]*Progress
	onChange func(Progress)
}

// NewRegistry creates a registry. onChange, when set, is registered on every
// tracker the registry creates.
func NewRegistry(onChange func(Progress)) *Registry {
	return &Registry{agents: make(map[string]*Progress), onChange: onChange}
}

// Tracker returns the tracker of agentID, creating it when needed.
func (r *Registry) Tracker(agentID string) *Progress {
	r.mu.RLock()
	tracker, ok := r.agents[agentID]
	r.mu.RUnlock()
	if ok {
		return tracker
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tracker, ok = r.agents[agentID]; ok {
		return tracker
	}
	now := clock.Now()
	tracker = &Progress{AgentID: agentID, StartedAt: now, UpdatedAt: now, onChange: r.onChange}
	r.agents[agentID] = tracker
	return tracker
}

// Update applies d to the tracker of agentID.
func (r *Registry) Update(agentID string, d Delta) {
	if r == nil || agentID == "" {
		return
	}
	r.Tracker(agentID).Update(d)
}

// Get returns a snapshot of agentID's tracker.
func (r *Registry) Get(agentID string) (Progress, bool) {
	if r == nil {
		return Progress{}, false
	}
	r.mu.RLock()
	tracker, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return Progress{}, false
	}
	return tracker.Snapshot(), true
}

// Snapshots returns snapshots of all trackers ordered by agent id.
func (r *Registry) Snapshots() []Progress {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	trackers := make([]*Progress, 0, len(r.agents))
	for _, tracker := range r.agents {
		trackers = append(trackers, tracker)
	}
	r.mu.RUnlock()
	ret := make([]Progress, 0, len(trackers))
	for _, tracker := range trackers {
		ret = append(ret, tracker.Snapshot())
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].AgentID < ret[j].AgentID })
	return ret
}

// Total sums the counters of all trackers.
func (r *Registry) Total() Progress {
	var ret Progress
	for _, snapshot := range r.Snapshots() {
		ret.Allocations += snapshot.Allocations
		ret.LoadUpdates += snapshot.LoadUpdates
		ret.QueueOps += snapshot.QueueOps
		ret.Configurations += snapshot.Configurations
		ret.Distractions += snapshot.Distractions
		ret.Filtered += snapshot.Filtered
		ret.Overloads += snapshot.Overloads
		ret.Failures += snapshot.Failures
		if ret.StartedAt.IsZero() || snapshot.StartedAt.Before(ret.StartedAt) {
			ret.StartedAt = snapshot.StartedAt
		}
		if snapshot.UpdatedAt.After(ret.UpdatedAt) {
			ret.UpdatedAt = snapshot.UpdatedAt
		}
	}
	return ret
}
