package attention

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/viant/attention/model/load"
	"github.com/viant/attention/runtime/mailbox"
	"github.com/viant/attention/service/allocator"
	"github.com/viant/attention/service/analytics"
	"github.com/viant/attention/service/feed"
	"github.com/viant/attention/service/messaging"
	"github.com/viant/attention/service/notifier"
	"github.com/viant/attention/service/tuner"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, for example
// ATTENTION_STORE_TYPE=sqlite or ATTENTION_ALLOCATOR_MINPRIMARYFOCUS=0.65.
const EnvPrefix = "ATTENTION"

// Store types.
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
	StoreSQLite = "sqlite"
)

// Config is a serialisable representation of the service configuration. The
// zero value of any nested section is replaced by that package's defaults.
type Config struct {
	Allocator allocator.Config `json:"allocator" yaml:"allocator" mapstructure:"allocator"`
	Load      load.Config      `json:"load" yaml:"load" mapstructure:"load"`
	Mailbox   mailbox.Config   `json:"mailbox" yaml:"mailbox" mapstructure:"mailbox"`
	Store     StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Feed      feed.Config      `json:"feed" yaml:"feed" mapstructure:"feed"`
	Notifier  notifier.Config  `json:"notifier" yaml:"notifier" mapstructure:"notifier"`
	Analytics analytics.Config `json:"analytics" yaml:"analytics" mapstructure:"analytics"`
	Tuner     tuner.Config     `json:"tuner" yaml:"tuner" mapstructure:"tuner"`
	Logging   LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
	Tracing   TracingConfig    `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
}

// StoreConfig selects the state store adapter
type StoreConfig struct {
	Type     string `json:"type" yaml:"type" mapstructure:"type"`
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty" mapstructure:"base_path"`
	DSN      string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// LoggingConfig configures the default logger
type LoggingConfig struct {
	Level   string `json:"level" yaml:"level" mapstructure:"level"`
	Console bool   `json:"console" yaml:"console" mapstructure:"console"`
}

// TracingConfig configures OpenTelemetry tracing. An empty OutputFile writes
// spans to stdout.
type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string `json:"serviceName" yaml:"serviceName" mapstructure:"service_name"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion" mapstructure:"service_version"`
	OutputFile     string `json:"outputFile,omitempty" yaml:"outputFile,omitempty" mapstructure:"output_file"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Allocator: allocator.DefaultConfig(),
		Load:      load.DefaultConfig(),
		Mailbox:   mailbox.DefaultConfig(),
		Store:     StoreConfig{Type: StoreMemory},
		Feed:      feed.DefaultConfig(),
		Notifier:  notifier.DefaultConfig(),
		Analytics: analytics.DefaultConfig(),
		Tuner:     tuner.DefaultConfig(),
		Logging:   LoggingConfig{Level: "info"},
		Tracing:   TracingConfig{ServiceName: "attention", ServiceVersion: "dev"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if v := c.Allocator.MaxTotalAllocation; v <= 0 || v > 1 {
		errs = append(errs, fmt.Errorf("allocator.maxTotalAllocation must be in (0,1], got %v", v))
	}
	if v := c.Allocator.MinPrimaryFocus; v < 0 || v > c.Allocator.MaxTotalAllocation {
		errs = append(errs, fmt.Errorf("allocator.minPrimaryFocus must be in [0,maxTotalAllocation], got %v", v))
	}
	if c.Allocator.MaxSecondaryTasks < 0 {
		errs = append(errs, fmt.Errorf("allocator.maxSecondaryTasks must be >= 0"))
	}
	if c.Load.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("load.capacity must be > 0"))
	}
	if v := c.Load.OverloadThreshold; v <= 0 || v > 1 {
		errs = append(errs, fmt.Errorf("load.overloadThreshold must be in (0,1], got %v", v))
	}
	if c.Load.WarningThreshold > c.Load.OverloadThreshold {
		errs = append(errs, fmt.Errorf("load.warningThreshold must not exceed load.overloadThreshold"))
	}
	if v := c.Allocator.Filter.Threshold; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("allocator.filter.threshold must be in [0,1], got %v", v))
	}
	switch c.Store.Type {
	case StoreMemory:
	case StoreFS:
		if c.Store.BasePath == "" {
			errs = append(errs, fmt.Errorf("store.basePath is required for the fs store"))
		}
	case StoreSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.type %q", c.Store.Type))
	}
	switch c.Feed.Vendor {
	case messaging.VendorMemory, messaging.VendorRedis:
	case messaging.VendorFS:
		if c.Feed.FS.BasePath == "" {
			errs = append(errs, fmt.Errorf("feed.fs.basePath is required for the fs feed"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported feed.vendor %q", c.Feed.Vendor))
	}
	if c.Notifier.Buffer < 0 {
		errs = append(errs, fmt.Errorf("notifier.buffer must be >= 0"))
	}
	if v := c.Tuner.LearningRate; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("tuner.learningRate must be in [0,1], got %v", v))
	}
	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	return errors.Join(errs...)
}

// YAML returns the configuration as YAML, in the format LoadConfig reads.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// LoadConfig reads the YAML file at path over the defaults and applies
// ATTENTION_* environment overrides. An empty path uses defaults and
// environment only.
func LoadConfig(path string) (*Config, error) {
	defaults, err := DefaultConfig().YAML()
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err = v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err = v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %v: %w", path, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err = v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Logger derives a logger from the global zerolog logger using the logging
// section
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil || c.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	logger := log.Logger
	if c.Logging.Console {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	return logger.Level(level).With().Str("component", "attention").Logger()
}
