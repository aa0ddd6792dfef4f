// Package config loads the lifecycled configuration.
//
// Sources, highest precedence first: CLI flags, LIFECYCLED_* environment
// variables, the configuration file (YAML, JSON or TOML), defaults. The
// services section is user data handed to every service instance; it is
// merged with any --service-config files by ResolveServices.
package config

import (
	"time"

	"github.com/marmos91/lifecycled/pkg/api"
	"github.com/marmos91/lifecycled/pkg/discovery"
)

// EnvPrefix prefixes every environment override, e.g.
// LIFECYCLED_LOGGING_LEVEL=DEBUG.
const EnvPrefix = "LIFECYCLED"

// Config represents the lifecycled configuration.
type Config struct {
	Logging   LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	Lifecycle LifecycleConfig  `mapstructure:"lifecycle" yaml:"lifecycle"`
	Watcher   WatcherConfig    `mapstructure:"watcher" yaml:"watcher"`
	Status    api.Config       `mapstructure:"status" yaml:"status"`
	Discovery discovery.Config `mapstructure:"discovery" yaml:"discovery"`

	// Services is merged into the context of every service instance.
	Services map[string]any `mapstructure:"services" yaml:"services,omitempty"`
}

// LoggingConfig selects the process log level, format and destination.
// Services may raise their own level above it, never lower it.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"` // stdout, stderr or a file path
}

// TelemetryConfig enables span export for lifecycle phases and restarts.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"` // OTLP gRPC host:port
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig enables Pyroscope profiling, labelled per module.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// LifecycleConfig tunes how services are run.
type LifecycleConfig struct {
	// InterruptGrace is how long interrupt hooks get before teardown
	// starts. Negative skips the wait.
	InterruptGrace time.Duration `mapstructure:"interrupt_grace" yaml:"interrupt_grace"`

	// RestartDelay is the pause before retrying a restart that failed.
	RestartDelay time.Duration `mapstructure:"restart_delay" validate:"gte=0" yaml:"restart_delay"`

	// Debug logs tasks still pending once services terminate.
	// LIFECYCLED_DEBUG also enables it.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// WatcherConfig restarts the services when watched files change. The
// configuration file and --service-config files are always watched.
type WatcherConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Paths    []string      `mapstructure:"paths" yaml:"paths,omitempty"`
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0" yaml:"debounce"`
}
