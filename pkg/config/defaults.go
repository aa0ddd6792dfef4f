package config

import (
	"strings"

	"github.com/marmos91/lifecycled/internal/telemetry"
	"github.com/marmos91/lifecycled/pkg/api"
	"github.com/marmos91/lifecycled/pkg/discovery"
	"github.com/marmos91/lifecycled/pkg/launcher"
	"github.com/marmos91/lifecycled/pkg/lifecycle"
	"github.com/marmos91/lifecycled/pkg/watcher"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLifecycleDefaults(&cfg.Lifecycle)
	applyWatcherDefaults(&cfg.Watcher)
	cfg.Status.ApplyDefaults()
	cfg.Discovery.ApplyDefaults()

	if cfg.Services == nil {
		cfg.Services = map[string]any{}
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = append([]string(nil), telemetry.DefaultProfileTypes...)
	}
}

func applyLifecycleDefaults(cfg *LifecycleConfig) {
	if cfg.InterruptGrace == 0 {
		cfg.InterruptGrace = lifecycle.DefaultInterruptGrace
	}
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = launcher.DefaultRestartDelay
	}
}

func applyWatcherDefaults(cfg *WatcherConfig) {
	if cfg.Debounce == 0 {
		cfg.Debounce = watcher.DefaultDebounce
	}
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Discovery: discovery.Config{Type: discovery.TypeMemory},
		Status:    api.Config{Enabled: true, Metrics: true},
	}
	ApplyDefaults(cfg)
	return cfg
}

