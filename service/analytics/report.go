package analytics

import (
	"time"

	"github.com/viant/attention/model"
	"github.com/viant/attention/progress"
)

// Recommendation texts.
const (
	RecommendFocus       = "focus quality is low: reduce concurrent secondary tasks"
	RecommendDistraction = "distraction level is high: tighten the distraction filter threshold"
	RecommendLoad        = "cognitive load peaks above capacity in some hours: reschedule demanding work"
	RecommendSwitching   = "task switching cost is high: batch similar tasks"
)

// UnassignedTaskType groups records without a primary task.
const UnassignedTaskType = "unassigned"

// Report summarizes an agent history window
type Report struct {
	AgentID         string                   `json:"agentId"`
	From            time.Time                `json:"from"`
	To              time.Time                `json:"to"`
	Samples         int                      `json:"samples"`
	FocusPatterns   map[string]*FocusPattern `json:"focusPatterns"`
	LoadTrends      map[int]*LoadTrend       `json:"loadTrends"`
	Distraction     Effectiveness            `json:"distraction"`
	Efficiency      Metrics                  `json:"efficiency"`
	Recommendations []string                 `json:"recommendations,omitempty"`
}

// FocusPattern aggregates records sharing a primary task type
type FocusPattern struct {
	TaskType        string  `json:"taskType"`
	Samples         int     `json:"samples"`
	AvgFocus        float64 `json:"avgFocus"`
	AvgFocusQuality float64 `json:"avgFocusQuality"`
	AvgLoad         float64 `json:"avgLoad"`
}

// LoadTrend aggregates records by UTC hour of day
type LoadTrend struct {
	Hour      int     `json:"hour"`
	Samples   int     `json:"samples"`
	AvgLoad   float64 `json:"avgLoad"`
	PeakLoad  float64 `json:"peakLoad"`
	Overloads int     `json:"overloads"`
}

// Effectiveness is the share of distractions filtered within the window
type Effectiveness struct {
	Total    int     `json:"total"`
	Filtered int     `json:"filtered"`
	Ratio    float64 `json:"ratio"`
}

// Metrics averages the efficiency sub-scores and load over the window
type Metrics struct {
	AvgFocusQuality       float64 `json:"avgFocusQuality"`
	AvgTaskSwitchingCost  float64 `json:"avgTaskSwitchingCost"`
	AvgDistractionLevel   float64 `json:"avgDistractionLevel"`
	AvgAttentionStability float64 `json:"avgAttentionStability"`
	AvgCognitiveLoad      float64 `json:"avgCognitiveLoad"`
	AvgTotalAllocation    float64 `json:"avgTotalAllocation"`
	OverloadRate          float64 `json:"overloadRate"`
	Switches              int     `json:"switches"`
}

// Stats reports the latest state of agents and the process counters
type Stats struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Agents      []*AgentStats     `json:"agents"`
	Totals      progress.Progress `json:"totals"`
}

// AgentStats summarizes the latest record of one agent
type AgentStats struct {
	AgentID         string                 `json:"agentId"`
	SessionID       string                 `json:"sessionId,omitempty"`
	StateID         string                 `json:"stateId"`
	Version         int64                  `json:"version"`
	Timestamp       time.Time              `json:"timestamp"`
	PrimaryTaskID   string                 `json:"primaryTaskId,omitempty"`
	ActiveSecondary int                    `json:"activeSecondary"`
	TotalAllocation float64                `json:"totalAllocation"`
	Utilization     float64                `json:"utilization"`
	Overload        bool                   `json:"overload"`
	DeepFocusMode   bool                   `json:"deepFocusMode"`
	QueueDepth      map[model.Priority]int `json:"queueDepth"`
	Distractions    model.DistractionStats `json:"distractions"`
	SwitchCount     int                    `json:"switchCount"`
	Session         model.SessionAnalytics `json:"session"`
	Progress        *progress.Progress     `json:"progress,omitempty"`
}
