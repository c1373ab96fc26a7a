package model

import "strings"

// Priority represents one of the four fixed priority tiers.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities lists tiers from the most to the least important.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority normalises a priority name, it returns false for unknown names.
func ParsePriority(name string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(name)))
	return p, p.Valid()
}

// Valid returns true for one of the four known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Boost returns the additive primary focus adjustment for the priority.
func (p Priority) Boost() float64 {
	switch p {
	case PriorityCritical:
		return 0.10
	case PriorityHigh:
		return 0.05
	case PriorityLow:
		return -0.05
	}
	return 0
}

// Rank returns 0 for critical up to 3 for low; unknown priorities rank last.
func (p Priority) Rank() int {
	for i, candidate := range Priorities {
		if candidate == p {
			return i
		}
	}
	return len(Priorities)
}

// StakesLevel describes how costly a mistake on the current task would be.
type StakesLevel string

const (
	StakesLow      StakesLevel = "low"
	StakesMedium   StakesLevel = "medium"
	StakesHigh     StakesLevel = "high"
	StakesCritical StakesLevel = "critical"
)
