package feed

import (
	"time"

	"github.com/viant/attention/service/messaging"
	"github.com/viant/attention/service/messaging/fs"
	"github.com/viant/attention/service/messaging/memory"
	"github.com/viant/attention/service/messaging/redis"
)

// Config represents change feed configuration
type Config struct {
	// Vendor selects the transport: memory, fs or redis
	Vendor messaging.Vendor `json:"vendor" yaml:"vendor" mapstructure:"vendor"`

	// Buffer is the per-watcher event buffer
	Buffer int `json:"buffer" yaml:"buffer" mapstructure:"buffer"`

	// PollInterval is the wait after an empty consume on polling transports
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval" mapstructure:"poll_interval"`

	// PublishTimeout bounds publishing of a write
	PublishTimeout time.Duration `json:"publishTimeout" yaml:"publishTimeout" mapstructure:"publish_timeout"`

	Memory memory.Config `json:"memory" yaml:"memory" mapstructure:"memory"`
	FS     fs.Config     `json:"fs" yaml:"fs" mapstructure:"fs"`
	Redis  redis.Config  `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// DefaultConfig returns the default in-memory feed configuration
func DefaultConfig() Config {
	return Config{
		Vendor:         messaging.VendorMemory,
		Buffer:         64,
		PollInterval:   50 * time.Millisecond,
		PublishTimeout: 2 * time.Second,
		Memory:         memory.DefaultConfig(),
		FS:             fs.DefaultConfig(),
		Redis:          redis.DefaultConfig(),
	}
}
