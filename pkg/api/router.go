package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/lifecycled/internal/api/handlers"
	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/discovery"
)

// NewRouter builds the status API router.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /status - Launcher snapshot
//   - GET /services - Named service instances
//   - GET /services/{name} - One named instance
//   - GET /discovery - Records held by the discovery backend
//   - GET /metrics - Prometheus metrics, when reg is non-nil
func NewRouter(source handlers.Source, store discovery.Store, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	var checker handlers.Checker
	var lister handlers.Lister
	if store != nil {
		lister = store
		if c, ok := store.(handlers.Checker); ok {
			checker = c
		}
	}

	health := handlers.NewHealthHandler(source, checker)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	services := handlers.NewServicesHandler(source, lister)
	r.Get("/status", services.Status)
	r.Route("/services", func(r chi.Router) {
		r.Get("/", services.List)
		r.Get("/{name}", services.Get)
	})
	r.Get("/discovery", services.Discovery)

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.NotFound(w, "no route for "+r.URL.Path)
	})

	return r
}

// requestLogger logs every request once it completes. Probe and scrape
// requests are logged at DEBUG.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(time.Since(start)),
		}
		if isQuietPath(r.URL.Path) {
			logger.Debug("API request completed", args...)
		} else {
			logger.Info("API request completed", args...)
		}
	})
}

func isQuietPath(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics"
}
