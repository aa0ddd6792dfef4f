package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on lifecycle spans.
const (
	AttrModule   = "lifecycled.module"
	AttrPhase    = "lifecycled.phase"
	AttrService  = "lifecycled.service"
	AttrTasks    = "lifecycled.tasks"
	AttrFailures = "lifecycled.failures"
	AttrBackend  = "lifecycled.discovery.backend"
)

// Span names for runs outside a single phase.
const (
	SpanRun     = "lifecycle.run"
	SpanRestart = "launcher.restart"
)

// Module returns an attribute for the module being run
func Module(name string) attribute.KeyValue {
	return attribute.String(AttrModule, name)
}

// Service returns an attribute for a service instance name
func Service(name string) attribute.KeyValue {
	return attribute.String(AttrService, name)
}

// Backend returns an attribute for a discovery backend name
func Backend(name string) attribute.KeyValue {
	return attribute.String(AttrBackend, name)
}

// StartPhaseSpan starts a span for one lifecycle phase of a module. The
// span is named after the phase ("lifecycle.setup", "discovery.register", ...).
func StartPhaseSpan(ctx context.Context, module, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		Module(module),
		attribute.String(AttrPhase, phase),
	}, attrs...)
	return StartSpan(ctx, phase, trace.WithAttributes(all...))
}
