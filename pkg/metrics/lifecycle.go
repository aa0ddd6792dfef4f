package metrics

import "time"

// LifecycleMetrics records what happens during orchestrator runs.
// Implementations must be safe for concurrent use.
type LifecycleMetrics interface {
	// ObservePhase records how long a lifecycle phase took for a module and
	// how many of its tasks failed.
	ObservePhase(module, phase string, duration time.Duration, failures int)

	// SetState records the current orchestrator state of a module.
	SetState(module, state string)

	// SetStartedServices records how many services of a module were started.
	SetStartedServices(module string, count int)

	// RecordRestart counts a launcher restart, labelled by its cause
	// ("error" or "reload").
	RecordRestart(cause string)
}

// NewLifecycleMetrics creates a Prometheus-backed LifecycleMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). A nil
// value can be handed to the orchestrator and the launcher as is.
//
// Example usage:
//
//	metrics.InitRegistry()
//	m := metrics.NewLifecycleMetrics()
//	orch := lifecycle.New(lifecycle.Options{Module: mod, Metrics: m})
func NewLifecycleMetrics() LifecycleMetrics {
	if !IsEnabled() {
		return nil
	}

	mu.RLock()
	ctor := newPrometheusLifecycleMetrics
	mu.RUnlock()
	if ctor == nil {
		return nil
	}
	return ctor()
}

// newPrometheusLifecycleMetrics is set by pkg/metrics/prometheus.
// The indirection keeps this package free of the implementation import.
var newPrometheusLifecycleMetrics func() LifecycleMetrics

// RegisterLifecycleMetricsConstructor registers the Prometheus implementation.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterLifecycleMetricsConstructor(constructor func() LifecycleMetrics) {
	mu.Lock()
	newPrometheusLifecycleMetrics = constructor
	mu.Unlock()
}

// ObservePhase records a phase duration if m is non-nil.
func ObservePhase(m LifecycleMetrics, module, phase string, duration time.Duration, failures int) {
	if m != nil {
		m.ObservePhase(module, phase, duration, failures)
	}
}

// SetState records an orchestrator state if m is non-nil.
func SetState(m LifecycleMetrics, module, state string) {
	if m != nil {
		m.SetState(module, state)
	}
}

// SetStartedServices records the started service count if m is non-nil.
func SetStartedServices(m LifecycleMetrics, module string, count int) {
	if m != nil {
		m.SetStartedServices(module, count)
	}
}

// RecordRestart counts a restart if m is non-nil.
func RecordRestart(m LifecycleMetrics, cause string) {
	if m != nil {
		m.RecordRestart(cause)
	}
}
