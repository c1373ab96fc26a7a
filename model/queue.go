package model

import (
	"time"
)

// QueueItem is a pending unit of work waiting in a priority tier.
type QueueItem struct {
	TaskID                  string        `json:"taskId" yaml:"taskId"`
	Description             string        `json:"description,omitempty" yaml:"description,omitempty"`
	ArrivalTime             time.Time     `json:"arrivalTime" yaml:"arrivalTime"`
	Deadline                *time.Time    `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	EstimatedProcessingTime time.Duration `json:"estimatedProcessingTime" yaml:"estimatedProcessingTime"`
	Dependencies            []string      `json:"dependencies" yaml:"dependencies"`
}

// PriorityQueue holds four independent ordered tiers.
type PriorityQueue struct {
	Critical []QueueItem `json:"critical" yaml:"critical"`
	High     []QueueItem `json:"high" yaml:"high"`
	Medium   []QueueItem `json:"medium" yaml:"medium"`
	Low      []QueueItem `json:"low" yaml:"low"`
}

// Tier returns a pointer to the tier slice, nil for an unknown priority.
func (q *PriorityQueue) Tier(priority Priority) *[]QueueItem {
	switch priority {
	case PriorityCritical:
		return &q.Critical
	case PriorityHigh:
		return &q.High
	case PriorityMedium:
		return &q.Medium
	case PriorityLow:
		return &q.Low
	}
	return nil
}

// Find returns the tier holding taskID and its index, or false.
func (q *PriorityQueue) Find(taskID string) (Priority, int, bool) {
	for _, priority := range Priorities {
		tier := q.Tier(priority)
		for i := range *tier {
			if (*tier)[i].TaskID == taskID {
				return priority, i, true
			}
		}
	}
	return "", -1, false
}

// Add appends item to the tier. It returns false when the task id already
// sits in any tier or the priority is unknown.
func (q *PriorityQueue) Add(priority Priority, item QueueItem) bool {
	tier := q.Tier(priority)
	if tier == nil {
		return false
	}
	if _, _, ok := q.Find(item.TaskID); ok {
		return false
	}
	if item.Dependencies == nil {
		item.Dependencies = []string{}
	}
	*tier = append(*tier, item)
	return true
}

// Remove deletes taskID from the tier containing it and reports whether a
// removal happened.
func (q *PriorityQueue) Remove(taskID string) bool {
	priority, index, ok := q.Find(taskID)
	if !ok {
		return false
	}
	tier := q.Tier(priority)
	items := *tier
	*tier = append(items[:index:index], items[index+1:]...)
	return true
}

// Len returns the number of items across all tiers.
func (q *PriorityQueue) Len() int {
	return len(q.Critical) + len(q.High) + len(q.Medium) + len(q.Low)
}

// Depths returns the item count per tier.
func (q *PriorityQueue) Depths() map[Priority]int {
	ret := make(map[Priority]int, len(Priorities))
	for _, priority := range Priorities {
		ret[priority] = len(*q.Tier(priority))
	}
	return ret
}

// Clone returns a deep copy of the queue.
func (q PriorityQueue) Clone() PriorityQueue {
	return PriorityQueue{
		Critical: cloneItems(q.Critical),
		High:     cloneItems(q.High),
		Medium:   cloneItems(q.Medium),
		Low:      cloneItems(q.Low),
	}
}

func cloneItems(items []QueueItem) []QueueItem {
	if items == nil {
		return nil
	}
	ret := make([]QueueItem, len(items))
	for i, item := range items {
		ret[i] = item
		ret[i].Dependencies = append([]string{}, item.Dependencies...)
		if item.Deadline != nil {
			deadline := *item.Deadline
			ret[i].Deadline = &deadline
		}
	}
	return ret
}
