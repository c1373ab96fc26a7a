package tuner

import "time"

// Config represents adaptive tuner configuration
type Config struct {
	// Enabled starts the scheduled job with the service
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Schedule is a robfig/cron spec, for example "@every 1m"
	Schedule string `json:"schedule" yaml:"schedule" mapstructure:"schedule"`

	// Window is the analytics window used to measure effectiveness
	Window time.Duration `json:"window" yaml:"window" mapstructure:"window"`

	LearningRate float64 `json:"learningRate" yaml:"learningRate" mapstructure:"learning_rate"`

	// MinDistractions is the number of distractions a window needs before the
	// threshold moves
	MinDistractions int `json:"minDistractions" yaml:"minDistractions" mapstructure:"min_distractions"`

	// Timeout bounds one scheduled run
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns default tuner configuration
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Schedule:        "@every 1m",
		Window:          time.Hour,
		LearningRate:    0.1,
		MinDistractions: 5,
		Timeout:         30 * time.Second,
	}
}
