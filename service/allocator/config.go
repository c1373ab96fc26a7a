package allocator

import (
	"time"

	"github.com/viant/attention/model"
)

// Config represents allocator configuration
type Config struct {
	// MinPrimaryFocus is the lower bound of the primary task focus
	MinPrimaryFocus float64 `json:"minPrimaryFocus" yaml:"minPrimaryFocus" mapstructure:"min_primary_focus"`

	// MaxTotalAllocation is the attention budget
	MaxTotalAllocation float64 `json:"maxTotalAllocation" yaml:"maxTotalAllocation" mapstructure:"max_total_allocation"`

	// MaxSecondaryTasks is how many secondary tasks share the remaining budget
	MaxSecondaryTasks int `json:"maxSecondaryTasks" yaml:"maxSecondaryTasks" mapstructure:"max_secondary_tasks"`

	BaseFocus     float64 `json:"baseFocus" yaml:"baseFocus" mapstructure:"base_focus"`
	LoadPenalty   float64 `json:"loadPenalty" yaml:"loadPenalty" mapstructure:"load_penalty"`
	UrgencyWeight float64 `json:"urgencyWeight" yaml:"urgencyWeight" mapstructure:"urgency_weight"`

	// Thresholds seed the monitoring of a new agent
	Thresholds model.Thresholds `json:"thresholds" yaml:"thresholds" mapstructure:"thresholds"`

	// Filter seeds the distraction filter of a new agent
	Filter model.FilterSettings `json:"filter" yaml:"filter" mapstructure:"filter"`

	// OperationTimeout bounds store calls when the caller has no deadline
	OperationTimeout time.Duration `json:"operationTimeout" yaml:"operationTimeout" mapstructure:"operation_timeout"`

	// ConflictRetries is how many times a write is attempted on version conflict
	ConflictRetries int `json:"conflictRetries" yaml:"conflictRetries" mapstructure:"conflict_retries"`
}

// DefaultConfig returns the default allocator configuration
func DefaultConfig() Config {
	return Config{
		MinPrimaryFocus:    0.6,
		MaxTotalAllocation: 1.0,
		MaxSecondaryTasks:  3,
		BaseFocus:          0.9,
		LoadPenalty:        0.3,
		UrgencyWeight:      0.1,
		Thresholds: model.Thresholds{
			OverloadWarning:  0.75,
			FocusDegradation: 0.6,
			DistractionAlert: 0.5,
		},
		Filter: model.FilterSettings{
			Enabled:   true,
			Threshold: 0.5,
		},
		OperationTimeout: 5 * time.Second,
		ConflictRetries:  3,
	}
}
