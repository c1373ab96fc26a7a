package allocator

import (
	"fmt"
	"math"

	"github.com/viant/attention/model"
	"github.com/viant/attention/model/load"
	"github.com/viant/attention/model/types"
)

// Allocator splits the attention budget between a primary task and its
// secondary tasks. It holds no state and is safe for concurrent use.
type Allocator struct {
	config Config
}

// NewAllocator creates an allocator.
func NewAllocator(config Config) *Allocator {
	return &Allocator{config: config}
}

// Allocate computes the focus split for request under the assessed load.
func (a *Allocator) Allocate(request *model.Request, assessment *load.Assessment) (*model.Allocation, error) {
	cfg := a.config
	upper := math.Min(1.0, cfg.MaxTotalAllocation)
	required := request.Primary.RequiredFocus
	if required > cfg.MaxTotalAllocation+model.Epsilon {
		return nil, types.NewAllocationError(required, cfg.MaxTotalAllocation)
	}
	primaryFocus := a.PrimaryFocus(request.Primary.Priority, request.Context.Urgency, assessment.Utilization)
	if required > primaryFocus {
		primaryFocus = required
	}

	ret := &model.Allocation{
		AgentID:   request.AgentID,
		SessionID: request.SessionID,
		Primary: model.PrimaryFocus{
			TaskID:            request.Primary.TaskID,
			TaskType:          request.Primary.TaskType,
			Focus:             primaryFocus,
			Priority:          request.Primary.Priority,
			EstimatedDuration: request.Primary.EstimatedDuration,
		},
		CognitiveLoad:   assessment.CognitiveLoad(),
		Recommendations: append([]string(nil), assessment.Recommendations...),
		Shedding:        assessment.Shedding,
	}

	active := len(request.Secondary)
	if cfg.MaxSecondaryTasks >= 0 && active > cfg.MaxSecondaryTasks {
		active = cfg.MaxSecondaryTasks
	}
	remaining := math.Max(0, upper-primaryFocus)
	share := 0.0
	if active > 0 {
		share = remaining / float64(active)
	}
	total := primaryFocus
	for i, task := range request.Secondary {
		focus := model.SecondaryFocus{
			TaskID:               task.TaskID,
			TaskType:             task.TaskType,
			Priority:             task.Priority,
			BackgroundProcessing: task.BackgroundProcessing,
		}
		if i < active {
			focus.Focus = share
			if task.MaxFocus > 0 && focus.Focus > task.MaxFocus {
				focus.Focus = task.MaxFocus
			}
			total += focus.Focus
		} else {
			focus.Deferred = true
			ret.Deferred = append(ret.Deferred, task.TaskID)
		}
		ret.Secondary = append(ret.Secondary, focus)
	}
	if total > cfg.MaxTotalAllocation+model.Epsilon {
		return nil, types.NewAllocationError(total, cfg.MaxTotalAllocation)
	}
	ret.TotalAllocation = total
	ret.Efficiency = Efficiency(assessment.Utilization, active)
	if len(ret.Deferred) > 0 {
		ret.Recommendations = append(ret.Recommendations,
			fmt.Sprintf("%d secondary task(s) deferred: limit is %d concurrent secondary tasks", len(ret.Deferred), cfg.MaxSecondaryTasks))
	}
	return ret, nil
}

// PrimaryFocus returns the primary focus for priority and urgency under utilization.
func (a *Allocator) PrimaryFocus(priority model.Priority, urgency, utilization float64) float64 {
	cfg := a.config
	focus := math.Max(cfg.MinPrimaryFocus, cfg.BaseFocus-cfg.LoadPenalty*utilization)
	focus += priority.Boost() + cfg.UrgencyWeight*urgency
	return model.Clamp(focus, cfg.MinPrimaryFocus, math.Min(1.0, cfg.MaxTotalAllocation))
}

// Efficiency derives the efficiency sub-scores from utilization and the
// number of secondary tasks sharing attention.
func Efficiency(utilization float64, secondary int) model.Efficiency {
	n := float64(secondary)
	return model.Efficiency{
		FocusQuality:       model.Clamp01(1 - 0.4*utilization - 0.1*n),
		TaskSwitchingCost:  model.Clamp01(0.1*n + 0.1*utilization),
		DistractionLevel:   model.Clamp01(0.1 + 0.3*utilization + 0.05*n),
		AttentionStability: model.Clamp01(1 - 0.3*utilization - 0.1*n),
	}
}
