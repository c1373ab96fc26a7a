package analytics

import "time"

// Config represents analytics configuration. The thresholds drive the
// rule-based recommendations of a report.
type Config struct {
	DefaultWindow       time.Duration `json:"defaultWindow" yaml:"defaultWindow" mapstructure:"default_window"`
	MinFocusQuality     float64       `json:"minFocusQuality" yaml:"minFocusQuality" mapstructure:"min_focus_quality"`
	MaxDistractionLevel float64       `json:"maxDistractionLevel" yaml:"maxDistractionLevel" mapstructure:"max_distraction_level"`
	MaxHourlyLoad       float64       `json:"maxHourlyLoad" yaml:"maxHourlyLoad" mapstructure:"max_hourly_load"`
	MaxSwitchingCost    float64       `json:"maxSwitchingCost" yaml:"maxSwitchingCost" mapstructure:"max_switching_cost"`
}

// DefaultConfig returns default analytics configuration
func DefaultConfig() Config {
	return Config{
		DefaultWindow:       24 * time.Hour,
		MinFocusQuality:     0.6,
		MaxDistractionLevel: 0.5,
		MaxHourlyLoad:       0.8,
		MaxSwitchingCost:    0.3,
	}
}
