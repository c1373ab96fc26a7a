package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/viant/attention/model/types"
)

// Epsilon absorbs floating point noise in budget checks.
const Epsilon = 1e-9

// ValidAgentID reports whether id can name an agent. Stores use agent ids as
// path segments and keys, so dot segments and separators are rejected.
func ValidAgentID(id string) bool {
	switch id {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(id, "/\\")
}

// Validate checks the stored-record invariants. overloadThreshold is the
// utilization above which Overload must be set.
func (s *State) Validate(maxTotalAllocation, overloadThreshold float64) error {
	if s == nil {
		return types.NewValidationError("state", "is nil")
	}
	if s.AgentID == "" {
		return types.NewValidationError("agentId", "is required")
	}
	total := 0.0
	if primary := s.Attention.Primary; primary != nil {
		if !inUnit(primary.Focus) {
			return types.NewValidationError("attention.primary.focus", "%v outside [0,1]", primary.Focus)
		}
		total += primary.Focus
	}
	for i, secondary := range s.Attention.Secondary {
		if !inUnit(secondary.Focus) {
			return types.NewValidationError(fmt.Sprintf("attention.secondary[%d].focus", i), "%v outside [0,1]", secondary.Focus)
		}
		total += secondary.Focus
	}
	if math.Abs(total-s.Attention.TotalAllocation) > 1e-6 {
		return types.NewValidationError("attention.totalAllocation", "%v does not match task focus sum %v", s.Attention.TotalAllocation, total)
	}
	if s.Attention.TotalAllocation > maxTotalAllocation+Epsilon {
		return types.NewValidationError("attention.totalAllocation", "%v exceeds budget %v", s.Attention.TotalAllocation, maxTotalAllocation)
	}
	if overload := s.CognitiveLoad.Utilization > overloadThreshold; overload != s.CognitiveLoad.Overload {
		return types.NewValidationError("cognitiveLoad.overload", "flag %v inconsistent with utilization %v", s.CognitiveLoad.Overload, s.CognitiveLoad.Utilization)
	}
	seen := map[string]Priority{}
	for _, priority := range Priorities {
		for _, item := range *s.PriorityQueue.Tier(priority) {
			if prev, ok := seen[item.TaskID]; ok {
				return types.NewValidationError("priorityQueue", "task %v present in %v and %v", item.TaskID, prev, priority)
			}
			seen[item.TaskID] = priority
		}
	}
	return nil
}

// Validate checks an allocation request.
func (r *Request) Validate() error {
	if r == nil {
		return types.NewValidationError("request", "is nil")
	}
	if r.AgentID == "" {
		return types.NewValidationError("agentId", "is required")
	}
	if err := r.Primary.validate("primary"); err != nil {
		return err
	}
	ids := map[string]bool{r.Primary.TaskID: true}
	for i := range r.Secondary {
		field := fmt.Sprintf("secondary[%d]", i)
		if err := r.Secondary[i].validate(field); err != nil {
			return err
		}
		if ids[r.Secondary[i].TaskID] {
			return types.NewValidationError(field+".taskId", "duplicate task %v", r.Secondary[i].TaskID)
		}
		ids[r.Secondary[i].TaskID] = true
	}
	factors := map[string]float64{
		"context.urgency":             r.Context.Urgency,
		"context.cognitiveComplexity": r.Context.CognitiveComplexity,
		"context.interruptibility":    r.Context.Interruptibility,
	}
	for field, value := range factors {
		if !inUnit(value) {
			return types.NewValidationError(field, "%v outside [0,1]", value)
		}
	}
	return nil
}

func (t *Task) validate(field string) error {
	if t.TaskID == "" {
		return types.NewValidationError(field+".taskId", "is required")
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Priority.Valid() {
		return types.NewValidationError(field+".priority", "unknown priority %q", t.Priority)
	}
	if !inUnit(t.Complexity) {
		return types.NewValidationError(field+".complexity", "%v outside [0,1]", t.Complexity)
	}
	if t.RequiredFocus < 0 {
		return types.NewValidationError(field+".requiredFocus", "must not be negative")
	}
	if !inUnit(t.MaxFocus) {
		return types.NewValidationError(field+".maxFocus", "%v outside [0,1]", t.MaxFocus)
	}
	return nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
