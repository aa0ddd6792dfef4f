package api

import "time"

// Config configures the status HTTP server.
type Config struct {
	// Enabled turns the status server on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Address is the listen address.
	// Default: "127.0.0.1:9400"
	Address string `mapstructure:"address" validate:"required_if=Enabled true" yaml:"address"`

	// Metrics exposes the Prometheus registry on /metrics.
	Metrics bool `mapstructure:"metrics" yaml:"metrics"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Address == "" {
		c.Address = "127.0.0.1:9400"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
