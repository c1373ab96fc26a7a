package model

import "time"

// Focus mode change sources recorded in the audit trail.
const (
	FocusSourceAllocation = "allocation"
	FocusSourceConfigure  = "configure"
)

// Distractions holds filter settings, protection and recent interruptions.
type Distractions struct {
	Active     []Distraction     `json:"active,omitempty" yaml:"active,omitempty"`
	Filtering  FilterSettings    `json:"filtering" yaml:"filtering"`
	Protection Protection        `json:"protection" yaml:"protection"`
	Stats      DistractionStats  `json:"stats" yaml:"stats"`
	Audit      []FocusModeChange `json:"audit,omitempty" yaml:"audit,omitempty"`
}

// FilterSettings is the persisted distraction filter configuration.
type FilterSettings struct {
	Enabled           bool     `json:"enabled" yaml:"enabled"`
	Threshold         float64  `json:"threshold" yaml:"threshold"`
	Whitelist         []string `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`
	Blacklist         []string `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
	AdaptiveFiltering bool     `json:"adaptiveFiltering" yaml:"adaptiveFiltering"`
}

// Protection controls deep focus.
type Protection struct {
	DeepFocusMode      bool          `json:"deepFocusMode" yaml:"deepFocusMode"`
	FocusTimeRemaining time.Duration `json:"focusTimeRemaining" yaml:"focusTimeRemaining"`
	InterruptionCost   float64       `json:"interruptionCost" yaml:"interruptionCost"`
}

// DistractionStats are cumulative per agent.
type DistractionStats struct {
	Total    int `json:"total" yaml:"total"`
	Filtered int `json:"filtered" yaml:"filtered"`
}

// Distraction is an evaluated interruption.
type Distraction struct {
	Source    string    `json:"source" yaml:"source"`
	Intensity float64   `json:"intensity" yaml:"intensity"`
	ArrivedAt time.Time `json:"arrivedAt" yaml:"arrivedAt"`
	Allowed   bool      `json:"allowed" yaml:"allowed"`
}

// FocusModeChange is an audit entry for a deep focus write.
type FocusModeChange struct {
	Enabled bool      `json:"enabled" yaml:"enabled"`
	Source  string    `json:"source" yaml:"source"`
	At      time.Time `json:"at" yaml:"at"`
}

// SetDeepFocus writes the deep focus flag and appends an audit entry. Every
// write is recorded, the last one wins.
func (d *Distractions) SetDeepFocus(enabled bool, source string, at time.Time) {
	d.Protection.DeepFocusMode = enabled
	d.Audit = append(d.Audit, FocusModeChange{Enabled: enabled, Source: source, At: at})
	if len(d.Audit) > MaxAuditEntries {
		d.Audit = d.Audit[len(d.Audit)-MaxAuditEntries:]
	}
}

// Record registers an evaluated distraction.
func (d *Distractions) Record(distraction Distraction) {
	d.Stats.Total++
	if !distraction.Allowed {
		d.Stats.Filtered++
	}
	d.Active = append(d.Active, distraction)
	if len(d.Active) > MaxActiveDistractions {
		d.Active = d.Active[len(d.Active)-MaxActiveDistractions:]
	}
}

// Clone returns a deep copy.
func (d Distractions) Clone() Distractions {
	ret := d
	ret.Active = append([]Distraction(nil), d.Active...)
	ret.Filtering.Whitelist = append([]string(nil), d.Filtering.Whitelist...)
	ret.Filtering.Blacklist = append([]string(nil), d.Filtering.Blacklist...)
	ret.Audit = append([]FocusModeChange(nil), d.Audit...)
	return ret
}

// FilterConfig is the input of a filter reconfiguration. DeepFocusMode nil
// leaves the current value untouched.
type FilterConfig struct {
	Enabled           bool     `json:"enabled" yaml:"enabled"`
	Threshold         float64  `json:"threshold" yaml:"threshold"`
	Whitelist         []string `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`
	Blacklist         []string `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
	AdaptiveFiltering bool     `json:"adaptiveFiltering" yaml:"adaptiveFiltering"`
	DeepFocusMode     *bool    `json:"deepFocusMode,omitempty" yaml:"deepFocusMode,omitempty"`
	SessionID         string   `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
}
