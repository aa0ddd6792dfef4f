// Package prometheus implements the metrics interfaces on top of the
// Prometheus client. Import it for its side effect of registering the
// constructors used by pkg/metrics.
package prometheus

import (
	"time"

	"github.com/marmos91/lifecycled/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterLifecycleMetricsConstructor(func() metrics.LifecycleMetrics {
		if m := NewLifecycleMetrics(); m != nil {
			return m
		}
		return nil
	})
}

// states lists every orchestrator state so the state gauge can be reset
// to a one-hot vector on each transition.
var states = []string{
	"idle", "setup", "invoking", "ready", "running",
	"interrupting", "tearing_down", "terminated", "aborted",
}

// lifecycleMetrics is the Prometheus implementation of metrics.LifecycleMetrics.
type lifecycleMetrics struct {
	phaseDuration   *prometheus.HistogramVec
	phaseFailures   *prometheus.CounterVec
	state           *prometheus.GaugeVec
	startedServices *prometheus.GaugeVec
	restarts        *prometheus.CounterVec
}

// NewLifecycleMetrics creates a Prometheus-backed lifecycle metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewLifecycleMetrics() *lifecycleMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &lifecycleMetrics{
		phaseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lifecycled_phase_duration_seconds",
				Help:    "Duration of lifecycle phases by module and phase",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"module", "phase"},
		),
		phaseFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycled_phase_failures_total",
				Help: "Total number of failed hooks by module and phase",
			},
			[]string{"module", "phase"},
		),
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lifecycled_state",
				Help: "Current orchestrator state (1 for the active state)",
			},
			[]string{"module", "state"},
		),
		startedServices: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lifecycled_started_services",
				Help: "Number of services started in the current run",
			},
			[]string{"module"},
		),
		restarts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycled_restarts_total",
				Help: "Total number of launcher restarts by cause",
			},
			[]string{"cause"}, // "error", "reload"
		),
	}
}

func (m *lifecycleMetrics) ObservePhase(module, phase string, duration time.Duration, failures int) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(module, phase).Observe(duration.Seconds())
	if failures > 0 {
		m.phaseFailures.WithLabelValues(module, phase).Add(float64(failures))
	}
}

func (m *lifecycleMetrics) SetState(module, state string) {
	if m == nil {
		return
	}
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(module, s).Set(v)
	}
}

func (m *lifecycleMetrics) SetStartedServices(module string, count int) {
	if m == nil {
		return
	}
	m.startedServices.WithLabelValues(module).Set(float64(count))
}

func (m *lifecycleMetrics) RecordRestart(cause string) {
	if m == nil {
		return
	}
	m.restarts.WithLabelValues(cause).Inc()
}
