package model

import (
	"time"
)

// Request asks for a new attention allocation.
type Request struct {
	AgentID   string            `json:"agentId" yaml:"agentId"`
	SessionID string            `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	Primary   Task              `json:"primary" yaml:"primary"`
	Secondary []Task            `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Context   ContextualFactors `json:"context" yaml:"context"`
}

// Task describes a task competing for attention.
type Task struct {
	TaskID               string        `json:"taskId" yaml:"taskId"`
	TaskType             string        `json:"taskType" yaml:"taskType"`
	Priority             Priority      `json:"priority" yaml:"priority"`
	Complexity           float64       `json:"complexity" yaml:"complexity"`
	EstimatedDuration    time.Duration `json:"estimatedDuration" yaml:"estimatedDuration"`
	RequiredFocus        float64       `json:"requiredFocus,omitempty" yaml:"requiredFocus,omitempty"`
	MaxFocus             float64       `json:"maxFocus,omitempty" yaml:"maxFocus,omitempty"`
	BackgroundProcessing bool          `json:"backgroundProcessing,omitempty" yaml:"backgroundProcessing,omitempty"`
}

// ContextualFactors describe the situation around the request, values in [0,1].
type ContextualFactors struct {
	Urgency             float64     `json:"urgency" yaml:"urgency"`
	StakesLevel         StakesLevel `json:"stakesLevel,omitempty" yaml:"stakesLevel,omitempty"`
	CognitiveComplexity float64     `json:"cognitiveComplexity" yaml:"cognitiveComplexity"`
	Interruptibility    float64     `json:"interruptibility" yaml:"interruptibility"`
}

// SheddingPlan lists work that can be deferred under overload.
type SheddingPlan struct {
	Deferrable []string `json:"deferrable" yaml:"deferrable"`
	Batch      bool     `json:"batch" yaml:"batch"`
}

// Allocation is the outcome of an allocation request.
type Allocation struct {
	StateID         string           `json:"stateId" yaml:"stateId"`
	AgentID         string           `json:"agentId" yaml:"agentId"`
	SessionID       string           `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	Timestamp       time.Time        `json:"timestamp" yaml:"timestamp"`
	Primary         PrimaryFocus     `json:"primary" yaml:"primary"`
	Secondary       []SecondaryFocus `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Deferred        []string         `json:"deferred,omitempty" yaml:"deferred,omitempty"`
	TotalAllocation float64          `json:"totalAllocation" yaml:"totalAllocation"`
	Efficiency      Efficiency       `json:"efficiency" yaml:"efficiency"`
	CognitiveLoad   CognitiveLoad    `json:"cognitiveLoad" yaml:"cognitiveLoad"`
	Recommendations []string         `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	Shedding        *SheddingPlan    `json:"shedding,omitempty" yaml:"shedding,omitempty"`
	DeepFocusMode   bool             `json:"deepFocusMode" yaml:"deepFocusMode"`
}

// LoadDelta adjusts the cognitive load of the current state. When Current is
// set it replaces the load, otherwise Adjustment is added to it.
type LoadDelta struct {
	SessionID  string     `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	Adjustment float64    `json:"adjustment,omitempty" yaml:"adjustment,omitempty"`
	Current    *float64   `json:"current,omitempty" yaml:"current,omitempty"`
	Breakdown  *Breakdown `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
}

// QueueOp names a priority queue operation.
type QueueOp string

const (
	QueueAdd    QueueOp = "add"
	QueueRemove QueueOp = "remove"
)

// QueueOperation is the input of a priority queue update.
type QueueOperation struct {
	Op        QueueOp   `json:"op" yaml:"op"`
	Tier      Priority  `json:"tier,omitempty" yaml:"tier,omitempty"`
	Item      QueueItem `json:"item,omitempty" yaml:"item,omitempty"`
	TaskID    string    `json:"taskId,omitempty" yaml:"taskId,omitempty"`
	SessionID string    `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
}
