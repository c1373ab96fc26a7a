package model

import (
	"time"
)

const (
	// MaxActiveDistractions caps Distractions.Active.
	MaxActiveDistractions = 20
	// MaxAlertHistory caps Monitoring.AlertHistory.
	MaxAlertHistory = 50
	// MaxSwitchPatterns caps ContextSwitching.Patterns.
	MaxSwitchPatterns = 20
	// MaxAuditEntries caps Distractions.Audit.
	MaxAuditEntries = 50
)

// State represents a single attention record of an agent.
type State struct {
	ID               string           `json:"id" yaml:"id"`
	AgentID          string           `json:"agentId" yaml:"agentId"`
	SessionID        string           `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	Timestamp        time.Time        `json:"timestamp" yaml:"timestamp"`
	Version          int64            `json:"version" yaml:"version"`
	Attention        Attention        `json:"attention" yaml:"attention"`
	CognitiveLoad    CognitiveLoad    `json:"cognitiveLoad" yaml:"cognitiveLoad"`
	PriorityQueue    PriorityQueue    `json:"priorityQueue" yaml:"priorityQueue"`
	Distractions     Distractions     `json:"distractions" yaml:"distractions"`
	ContextSwitching ContextSwitching `json:"contextSwitching" yaml:"contextSwitching"`
	Analytics        Analytics        `json:"analytics" yaml:"analytics"`
	Monitoring       Monitoring       `json:"monitoring" yaml:"monitoring"`
}

// Attention holds the focus split between the primary and secondary tasks.
type Attention struct {
	Primary         *PrimaryFocus    `json:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary       []SecondaryFocus `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	TotalAllocation float64          `json:"totalAllocation" yaml:"totalAllocation"`
	Efficiency      Efficiency       `json:"efficiency" yaml:"efficiency"`
}

// PrimaryFocus is the task receiving the bulk of the attention budget.
type PrimaryFocus struct {
	TaskID            string        `json:"taskId" yaml:"taskId"`
	TaskType          string        `json:"taskType" yaml:"taskType"`
	Focus             float64       `json:"focus" yaml:"focus"`
	Priority          Priority      `json:"priority" yaml:"priority"`
	StartTime         time.Time     `json:"startTime" yaml:"startTime"`
	EstimatedDuration time.Duration `json:"estimatedDuration" yaml:"estimatedDuration"`
}

// SecondaryFocus is a task sharing the remaining budget.
type SecondaryFocus struct {
	TaskID               string   `json:"taskId" yaml:"taskId"`
	TaskType             string   `json:"taskType" yaml:"taskType"`
	Focus                float64  `json:"focus" yaml:"focus"`
	Priority             Priority `json:"priority" yaml:"priority"`
	BackgroundProcessing bool     `json:"backgroundProcessing" yaml:"backgroundProcessing"`
	Deferred             bool     `json:"deferred,omitempty" yaml:"deferred,omitempty"`
}

// Efficiency holds derived quality sub-scores, all within [0,1].
type Efficiency struct {
	FocusQuality       float64 `json:"focusQuality" yaml:"focusQuality"`
	TaskSwitchingCost  float64 `json:"taskSwitchingCost" yaml:"taskSwitchingCost"`
	DistractionLevel   float64 `json:"distractionLevel" yaml:"distractionLevel"`
	AttentionStability float64 `json:"attentionStability" yaml:"attentionStability"`
}

// CognitiveLoad is the explicit numeric load model of an agent.
type CognitiveLoad struct {
	Current     float64   `json:"current" yaml:"current"`
	Capacity    float64   `json:"capacity" yaml:"capacity"`
	Utilization float64   `json:"utilization" yaml:"utilization"`
	Overload    bool      `json:"overload" yaml:"overload"`
	Breakdown   Breakdown `json:"breakdown" yaml:"breakdown"`
}

// Breakdown decomposes load across five cognitive functions.
type Breakdown struct {
	WorkingMemory  float64 `json:"working_memory" yaml:"working_memory"`
	Processing     float64 `json:"processing" yaml:"processing"`
	DecisionMaking float64 `json:"decision_making" yaml:"decision_making"`
	Communication  float64 `json:"communication" yaml:"communication"`
	Monitoring     float64 `json:"monitoring" yaml:"monitoring"`
}

// Scale returns the breakdown multiplied by factor, each component clamped to [0,1].
func (b Breakdown) Scale(factor float64) Breakdown {
	return Breakdown{
		WorkingMemory:  Clamp01(b.WorkingMemory * factor),
		Processing:     Clamp01(b.Processing * factor),
		DecisionMaking: Clamp01(b.DecisionMaking * factor),
		Communication:  Clamp01(b.Communication * factor),
		Monitoring:     Clamp01(b.Monitoring * factor),
	}
}

// ContextSwitching tracks primary task changes.
type ContextSwitching struct {
	LastSwitch    *time.Time      `json:"lastSwitch,omitempty" yaml:"lastSwitch,omitempty"`
	SwitchCount   int             `json:"switchCount" yaml:"switchCount"`
	AvgSwitchTime float64         `json:"avgSwitchTime" yaml:"avgSwitchTime"` // seconds between switches
	SwitchCost    float64         `json:"switchCost" yaml:"switchCost"`
	Patterns      []SwitchPattern `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Optimization  Optimization    `json:"optimization" yaml:"optimization"`
}

// SwitchPattern counts transitions between task types.
type SwitchPattern struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Count int    `json:"count" yaml:"count"`
}

// Optimization flags derived from switching behaviour.
type Optimization struct {
	BatchSimilarTasks bool `json:"batchSimilarTasks" yaml:"batchSimilarTasks"`
	MinimizeSwitches  bool `json:"minimizeSwitches" yaml:"minimizeSwitches"`
}

// RecordSwitch registers a primary task change from one task type to another.
func (c *ContextSwitching) RecordSwitch(from, to string, at time.Time, cost float64) {
	if c.LastSwitch != nil {
		elapsed := at.Sub(*c.LastSwitch).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		c.AvgSwitchTime = (c.AvgSwitchTime*float64(c.SwitchCount) + elapsed) / float64(c.SwitchCount+1)
	}
	c.SwitchCount++
	c.LastSwitch = &at
	c.SwitchCost = cost
	found := false
	for i := range c.Patterns {
		if c.Patterns[i].From == from && c.Patterns[i].To == to {
			c.Patterns[i].Count++
			found = true
			break
		}
	}
	if !found {
		c.Patterns = append(c.Patterns, SwitchPattern{From: from, To: to, Count: 1})
		if len(c.Patterns) > MaxSwitchPatterns {
			c.Patterns = c.Patterns[len(c.Patterns)-MaxSwitchPatterns:]
		}
	}
	c.Optimization.MinimizeSwitches = c.SwitchCount > 5 && c.AvgSwitchTime < 300
	c.Optimization.BatchSimilarTasks = false
	for _, pattern := range c.Patterns {
		if pattern.From == pattern.To && pattern.Count > 1 {
			c.Optimization.BatchSimilarTasks = true
			break
		}
	}
}

// Analytics holds per-session counters and derived trends.
type Analytics struct {
	Session         SessionAnalytics `json:"session" yaml:"session"`
	Trends          Trends           `json:"trends" yaml:"trends"`
	Recommendations []string         `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// SessionAnalytics accumulates counters since the first record of the agent.
type SessionAnalytics struct {
	StartTime      time.Time `json:"startTime" yaml:"startTime"`
	Allocations    int       `json:"allocations" yaml:"allocations"`
	OverloadEvents int       `json:"overloadEvents" yaml:"overloadEvents"`
	LoadUpdates    int       `json:"loadUpdates" yaml:"loadUpdates"`
	AvgFocus       float64   `json:"avgFocus" yaml:"avgFocus"`
}

// Trends holds the change against the previous record.
type Trends struct {
	UtilizationDelta float64 `json:"utilizationDelta" yaml:"utilizationDelta"`
	FocusDelta       float64 `json:"focusDelta" yaml:"focusDelta"`
	Direction        string  `json:"direction" yaml:"direction"` // rising, falling, stable
}

// Monitoring holds alert thresholds and history.
type Monitoring struct {
	AlertsEnabled bool       `json:"alertsEnabled" yaml:"alertsEnabled"`
	Thresholds    Thresholds `json:"thresholds" yaml:"thresholds"`
	LastAlert     *time.Time `json:"lastAlert,omitempty" yaml:"lastAlert,omitempty"`
	AlertHistory  []Alert    `json:"alertHistory,omitempty" yaml:"alertHistory,omitempty"`
}

// Thresholds trigger monitoring alerts.
type Thresholds struct {
	OverloadWarning  float64 `json:"overloadWarning" yaml:"overloadWarning"`
	FocusDegradation float64 `json:"focusDegradation" yaml:"focusDegradation"`
	DistractionAlert float64 `json:"distractionAlert" yaml:"distractionAlert"`
}

// Alert kinds.
const (
	AlertOverload         = "overload"
	AlertOverloadWarning  = "overload_warning"
	AlertFocusDegradation = "focus_degradation"
	AlertDistraction      = "distraction"
)

// Alert is a single monitoring alert.
type Alert struct {
	Type    string    `json:"type" yaml:"type"`
	Message string    `json:"message" yaml:"message"`
	Value   float64   `json:"value" yaml:"value"`
	At      time.Time `json:"at" yaml:"at"`
}

// Raise appends an alert, trimming history to MaxAlertHistory.
func (m *Monitoring) Raise(alert Alert) {
	at := alert.At
	m.LastAlert = &at
	m.AlertHistory = append(m.AlertHistory, alert)
	if len(m.AlertHistory) > MaxAlertHistory {
		m.AlertHistory = m.AlertHistory[len(m.AlertHistory)-MaxAlertHistory:]
	}
}

// PrimaryTaskID returns the primary task id or empty string.
func (s *State) PrimaryTaskID() string {
	if s == nil || s.Attention.Primary == nil {
		return ""
	}
	return s.Attention.Primary.TaskID
}

// PrimaryTaskType returns the primary task type or empty string.
func (s *State) PrimaryTaskType() string {
	if s == nil || s.Attention.Primary == nil {
		return ""
	}
	return s.Attention.Primary.TaskType
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	ret := *s
	if s.Attention.Primary != nil {
		primary := *s.Attention.Primary
		ret.Attention.Primary = &primary
	}
	ret.Attention.Secondary = append([]SecondaryFocus(nil), s.Attention.Secondary...)
	ret.PriorityQueue = s.PriorityQueue.Clone()
	ret.Distractions = s.Distractions.Clone()
	ret.ContextSwitching.Patterns = append([]SwitchPattern(nil), s.ContextSwitching.Patterns...)
	if s.ContextSwitching.LastSwitch != nil {
		last := *s.ContextSwitching.LastSwitch
		ret.ContextSwitching.LastSwitch = &last
	}
	ret.Analytics.Recommendations = append([]string(nil), s.Analytics.Recommendations...)
	ret.Monitoring.AlertHistory = append([]Alert(nil), s.Monitoring.AlertHistory...)
	if s.Monitoring.LastAlert != nil {
		last := *s.Monitoring.LastAlert
		ret.Monitoring.LastAlert = &last
	}
	return &ret
}

// NextTimestamp returns now, or one nanosecond past the prior timestamp when
// the clock has not advanced, so the latest record always wins.
func NextTimestamp(prior *State, now time.Time) time.Time {
	if prior != nil && !now.After(prior.Timestamp) {
		return prior.Timestamp.Add(time.Nanosecond)
	}
	return now
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp clamps v into [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
