package filter

import (
	"strings"

	"github.com/viant/attention/model"
)

// DefaultLearningRate is the step adaptive filtering takes toward the
// observed effectiveness.
const DefaultLearningRate = 0.1

// Decision reasons.
const (
	ReasonDisabled       = "disabled"
	ReasonBlacklisted    = "blacklisted"
	ReasonWhitelisted    = "whitelisted"
	ReasonDeepFocus      = "deep_focus"
	ReasonBelowThreshold = "below_threshold"
	ReasonAboveThreshold = "above_threshold"
)

// Policy is the evaluated form of an agent's filter settings.
// A nil *Policy allows everything.
type Policy struct {
	Enabled           bool
	Threshold         float64
	Whitelist         []string
	Blacklist         []string
	AdaptiveFiltering bool
	DeepFocusMode     bool
}

// FromState converts the persisted filter settings of state into a Policy.
func FromState(state *model.State) *Policy {
	if state == nil {
		return nil
	}
	settings := state.Distractions.Filtering
	return &Policy{
		Enabled:           settings.Enabled,
		Threshold:         settings.Threshold,
		Whitelist:         append([]string(nil), settings.Whitelist...),
		Blacklist:         append([]string(nil), settings.Blacklist...),
		AdaptiveFiltering: settings.AdaptiveFiltering,
		DeepFocusMode:     state.Distractions.Protection.DeepFocusMode,
	}
}

// Settings converts the policy into its persisted form.
func (p *Policy) Settings() model.FilterSettings {
	if p == nil {
		return model.FilterSettings{}
	}
	return model.FilterSettings{
		Enabled:           p.Enabled,
		Threshold:         p.Threshold,
		Whitelist:         append([]string(nil), p.Whitelist...),
		Blacklist:         append([]string(nil), p.Blacklist...),
		AdaptiveFiltering: p.AdaptiveFiltering,
	}
}

// Evaluate reports whether a distraction from source with intensity passes.
func (p *Policy) Evaluate(source string, intensity float64) bool {
	allowed, _ := p.Decide(source, intensity)
	return allowed
}

// Decide is Evaluate returning the rule that matched.
func (p *Policy) Decide(source string, intensity float64) (bool, string) {
	if p == nil {
		return true, ReasonDisabled
	}
	normalized := strings.ToLower(source)
	// Blacklist always denies, even with filtering disabled.
	if contains(p.Blacklist, normalized) {
		return false, ReasonBlacklisted
	}
	if !p.Enabled {
		return true, ReasonDisabled
	}
	if contains(p.Whitelist, normalized) {
		return true, ReasonWhitelisted
	}
	if p.DeepFocusMode {
		return false, ReasonDeepFocus
	}
	if intensity < p.Threshold {
		return true, ReasonBelowThreshold
	}
	return false, ReasonAboveThreshold
}

// Adapt moves threshold toward the observed effectiveness by rate.
func Adapt(threshold, effectiveness, rate float64) float64 {
	return model.Clamp01(threshold + rate*(effectiveness-threshold))
}

func contains(list []string, normalized string) bool {
	for _, candidate := range list {
		if normalized == strings.ToLower(candidate) {
			return true
		}
	}
	return false
}
