package telemetry

// Config holds OpenTelemetry tracing configuration. Spans are exported over
// OTLP gRPC; each orchestrator phase and every restart becomes a span.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string  // OTLP gRPC collector, e.g. "localhost:4317"
	Insecure       bool    // plaintext connection to the collector
	SampleRate     float64 // 0.0 to 1.0
}

// DefaultConfig returns tracing disabled, pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "lifecycled",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// withDefaults fills blank fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ServiceName == "" {
		c.ServiceName = d.ServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = d.ServiceVersion
	}
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	return c
}
