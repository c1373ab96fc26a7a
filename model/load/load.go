// Package load implements the cognitive load model: a pure, auditable
// function of task attributes, contextual factors and the prior load.
package load

import (
	"strings"

	"github.com/viant/attention/model"
)

// Config holds the load model coefficients and thresholds.
type Config struct {
	Floor                  float64 `json:"floor" yaml:"floor" mapstructure:"floor"`
	Capacity               float64 `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
	ComplexityWeight       float64 `json:"complexityWeight" yaml:"complexityWeight" mapstructure:"complexity_weight"`
	SecondaryWeight        float64 `json:"secondaryWeight" yaml:"secondaryWeight" mapstructure:"secondary_weight"`
	ContextWeight          float64 `json:"contextWeight" yaml:"contextWeight" mapstructure:"context_weight"`
	InterruptibilityWeight float64 `json:"interruptibilityWeight" yaml:"interruptibilityWeight" mapstructure:"interruptibility_weight"`
	CarryOver              float64 `json:"carryOver" yaml:"carryOver" mapstructure:"carry_over"`
	OverloadThreshold      float64 `json:"overloadThreshold" yaml:"overloadThreshold" mapstructure:"overload_threshold"`
	WarningThreshold       float64 `json:"warningThreshold" yaml:"warningThreshold" mapstructure:"warning_threshold"`
	MaxSecondaryTasks      int     `json:"maxSecondaryTasks" yaml:"maxSecondaryTasks" mapstructure:"max_secondary_tasks"`
}

// DefaultConfig returns the default load model.
func DefaultConfig() Config {
	return Config{
		Floor:                  0.3,
		Capacity:               1.0,
		ComplexityWeight:       0.4,
		SecondaryWeight:        0.1,
		ContextWeight:          0.2,
		InterruptibilityWeight: 0.1,
		CarryOver:              0.8,
		OverloadThreshold:      0.95,
		WarningThreshold:       0.75,
		MaxSecondaryTasks:      3,
	}
}

// Assessment is the outcome of a load assessment.
type Assessment struct {
	Current         float64             `json:"current"`
	Capacity        float64             `json:"capacity"`
	Utilization     float64             `json:"utilization"`
	Overload        bool                `json:"overload"`
	Warning         bool                `json:"warning"`
	Breakdown       model.Breakdown     `json:"breakdown"`
	Recommendations []string            `json:"recommendations,omitempty"`
	Shedding        *model.SheddingPlan `json:"shedding,omitempty"`
}

// CognitiveLoad converts the assessment into the persisted load record.
func (a *Assessment) CognitiveLoad() model.CognitiveLoad {
	return model.CognitiveLoad{
		Current:     a.Current,
		Capacity:    a.Capacity,
		Utilization: a.Utilization,
		Overload:    a.Overload,
		Breakdown:   a.Breakdown,
	}
}

// Assess computes the load for request, carrying over load from prior when present.
func Assess(request *model.Request, prior *model.State, cfg Config) *Assessment {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1.0
	}
	current := cfg.Floor +
		request.Primary.Complexity*cfg.ComplexityWeight +
		float64(len(request.Secondary))*cfg.SecondaryWeight +
		request.Context.CognitiveComplexity*cfg.ContextWeight +
		(1-request.Context.Interruptibility)*cfg.InterruptibilityWeight
	if prior != nil {
		if carried := cfg.CarryOver * prior.CognitiveLoad.Utilization * capacity; carried > current {
			current = carried
		}
	}
	current = model.Clamp(current, 0, capacity)
	ret := &Assessment{
		Current:     current,
		Capacity:    capacity,
		Utilization: current / capacity,
	}
	ret.Overload = ret.Utilization > cfg.OverloadThreshold
	ret.Warning = ret.Utilization > cfg.WarningThreshold
	ret.Breakdown = BreakdownFor(request.Primary.TaskType, current)
	ret.Recommendations = recommend(ret, request, cfg)
	if ret.Overload {
		ret.Shedding = shed(request)
	}
	return ret
}

// Recompute refreshes utilization and overload of a load whose Current changed.
func Recompute(load *model.CognitiveLoad, cfg Config) {
	if load.Capacity <= 0 {
		load.Capacity = cfg.Capacity
		if load.Capacity <= 0 {
			load.Capacity = 1.0
		}
	}
	load.Current = model.Clamp(load.Current, 0, load.Capacity)
	load.Utilization = load.Current / load.Capacity
	load.Overload = load.Utilization > cfg.OverloadThreshold
}

func recommend(a *Assessment, request *model.Request, cfg Config) []string {
	var ret []string
	if a.Overload {
		ret = append(ret, "cognitive overload: shed or defer non-critical secondary tasks")
	} else if a.Warning {
		ret = append(ret, "load approaching capacity: consider deferring secondary tasks")
	}
	if cfg.MaxSecondaryTasks > 0 && len(request.Secondary) > cfg.MaxSecondaryTasks {
		ret = append(ret, "too many concurrent secondary tasks: reduce parallel work")
	}
	if request.Context.Interruptibility < 0.3 && a.Warning {
		ret = append(ret, "low interruptibility under high load: enable deep focus")
	}
	return ret
}

func shed(request *model.Request) *model.SheddingPlan {
	plan := &model.SheddingPlan{Deferrable: []string{}}
	for _, task := range request.Secondary {
		if task.Priority != model.PriorityCritical {
			plan.Deferrable = append(plan.Deferrable, task.TaskID)
		}
	}
	plan.Batch = len(plan.Deferrable) >= 2
	return plan
}

// weights holds the per-function share of load for a task type.
type weights struct {
	workingMemory, processing, decisionMaking, communication, monitoring float64
}

var taskTypeWeights = map[string]weights{
	"conversation": {0.4, 0.5, 0.3, 0.8, 0.2},
	"analysis":     {0.7, 0.8, 0.5, 0.2, 0.3},
	"planning":     {0.6, 0.5, 0.8, 0.3, 0.3},
	"monitoring":   {0.3, 0.3, 0.2, 0.2, 0.8},
	"creative":     {0.5, 0.7, 0.4, 0.3, 0.2},
}

var defaultWeights = weights{0.5, 0.5, 0.4, 0.3, 0.3}

// BreakdownFor decomposes current load using task-type sensitive weights.
func BreakdownFor(taskType string, current float64) model.Breakdown {
	w, ok := taskTypeWeights[normalizeTaskType(taskType)]
	if !ok {
		w = defaultWeights
	}
	return model.Breakdown{
		WorkingMemory:  model.Clamp01(current * w.workingMemory),
		Processing:     model.Clamp01(current * w.processing),
		DecisionMaking: model.Clamp01(current * w.decisionMaking),
		Communication:  model.Clamp01(current * w.communication),
		Monitoring:     model.Clamp01(current * w.monitoring),
	}
}

func normalizeTaskType(taskType string) string {
	taskType = strings.ToLower(strings.TrimSpace(taskType))
	switch taskType {
	case "conversational", "chat", "dialogue":
		return "conversation"
	}
	return taskType
}
