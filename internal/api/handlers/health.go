package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/lifecycled/pkg/launcher"
)

// HealthCheckTimeout bounds the discovery backend health check.
const HealthCheckTimeout = 5 * time.Second

// Source reports the state of the running modules.
type Source interface {
	Snapshot() launcher.Snapshot
}

// Checker is implemented by discovery backends that can report their health.
type Checker interface {
	Healthcheck(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	source    Source
	checker   Checker
	startTime time.Time
}

// NewHealthHandler creates a health handler. source may be nil, in which
// case readiness always fails. checker may be nil.
func NewHealthHandler(source Source, checker Checker) *HealthHandler {
	return &HealthHandler{source: source, checker: checker, startTime: time.Now()}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	WriteJSONOK(w, healthyResponse(map[string]any{
		"service":    "lifecycled",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready. It succeeds once every module has
// started its services and the discovery backend, if any, is healthy.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		ServiceUnavailable(w, "launcher not initialized")
		return
	}

	snap := h.source.Snapshot()
	data := map[string]any{
		"modules":   snap.Modules,
		"services":  len(snap.Services),
		"restarts":  snap.Restarts,
		"exit_code": snap.ExitCode,
	}

	if !snap.Ready {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(data, "services are not running"))
		return
	}

	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
		defer cancel()

		start := time.Now()
		err := h.checker.Healthcheck(ctx)
		data["discovery_latency"] = time.Since(start).String()
		if err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(data, "discovery backend: "+err.Error()))
			return
		}
	}

	WriteJSONOK(w, healthyResponse(data))
}
