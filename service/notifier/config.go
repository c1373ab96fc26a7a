package notifier

import "time"

// Config represents notifier configuration
type Config struct {
	// Buffer is the capacity of each subscription channel
	Buffer int `json:"buffer" yaml:"buffer" mapstructure:"buffer"`

	// DeliveryTimeout is how long a send waits on a full channel before dropping
	DeliveryTimeout time.Duration `json:"deliveryTimeout" yaml:"deliveryTimeout" mapstructure:"delivery_timeout"`

	// DrainTimeout bounds Cancel waiting for the delivery goroutine
	DrainTimeout time.Duration `json:"drainTimeout" yaml:"drainTimeout" mapstructure:"drain_timeout"`
}

// DefaultConfig returns default notifier configuration
func DefaultConfig() Config {
	return Config{
		Buffer:          16,
		DeliveryTimeout: 100 * time.Millisecond,
		DrainTimeout:    time.Second,
	}
}
