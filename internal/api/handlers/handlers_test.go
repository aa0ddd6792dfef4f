package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/lifecycled/pkg/discovery"
	"github.com/marmos91/lifecycled/pkg/launcher"
	"github.com/marmos91/lifecycled/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct{ snap launcher.Snapshot }

func (s staticSource) Snapshot() launcher.Snapshot { return s.snap }

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Healthcheck(ctx context.Context) error { return f(ctx) }

type listerFunc func(ctx context.Context) ([]discovery.Record, error)

func (f listerFunc) List(ctx context.Context) ([]discovery.Record, error) { return f(ctx) }

func readySnapshot() launcher.Snapshot {
	return launcher.Snapshot{
		Ready: true,
		Modules: []launcher.ModuleStatus{
			{Module: "orders", State: lifecycle.StateRunning, Services: []string{"shop-orders-worker"}},
		},
		Services: []launcher.ServiceStatus{
			{Name: "shop-orders-worker", UUID: "u-1", Module: "orders", Type: "Worker", LogLevel: "INFO", Started: true},
		},
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func TestLiveness(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(nil, nil).Liveness(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	decode(t, w, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "lifecycled", resp.Data.(map[string]any)["service"])
}

func TestReadiness(t *testing.T) {
	t.Run("NoSource", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHealthHandler(nil, nil).Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	})

	t.Run("NotReady", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHealthHandler(staticSource{}, nil).Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp Response
		decode(t, w, &resp)
		assert.Equal(t, "unhealthy", resp.Status)
	})

	t.Run("Ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		h := NewHealthHandler(staticSource{readySnapshot()}, checkerFunc(func(context.Context) error { return nil }))
		h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp Response
		decode(t, w, &resp)
		data := resp.Data.(map[string]any)
		assert.EqualValues(t, 1, data["services"])
		assert.Contains(t, data, "discovery_latency")
	})

	t.Run("UnhealthyDiscovery", func(t *testing.T) {
		w := httptest.NewRecorder()
		h := NewHealthHandler(staticSource{readySnapshot()}, checkerFunc(func(context.Context) error { return errors.New("db gone") }))
		h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp Response
		decode(t, w, &resp)
		assert.Equal(t, "discovery backend: db gone", resp.Error)
	})
}

func TestServices(t *testing.T) {
	h := NewServicesHandler(staticSource{readySnapshot()}, nil)

	r := chi.NewRouter()
	r.Get("/services", h.List)
	r.Get("/services/{name}", h.Get)
	r.Get("/status", h.Status)
	r.Get("/discovery", h.Discovery)

	t.Run("List", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/services", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got []launcher.ServiceStatus
		decode(t, w, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "shop-orders-worker", got[0].Name)
	})

	t.Run("Get", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/services/shop-orders-worker", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/services/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Status", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

		var got map[string]any
		decode(t, w, &got)
		assert.Equal(t, true, got["ready"])
		assert.Equal(t, "running", got["modules"].([]any)[0].(map[string]any)["state"])
	})

	t.Run("DiscoveryWithoutBackend", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discovery", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDiscovery(t *testing.T) {
	t.Run("Records", func(t *testing.T) {
		h := NewServicesHandler(staticSource{}, listerFunc(func(context.Context) ([]discovery.Record, error) {
			return []discovery.Record{{UUID: "u-1", Name: "shop-orders-worker"}}, nil
		}))
		w := httptest.NewRecorder()
		h.Discovery(w, httptest.NewRequest(http.MethodGet, "/discovery", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got []discovery.Record
		decode(t, w, &got)
		assert.Equal(t, "u-1", got[0].UUID)
	})

	t.Run("ListFailure", func(t *testing.T) {
		h := NewServicesHandler(staticSource{}, listerFunc(func(context.Context) ([]discovery.Record, error) {
			return nil, errors.New("closed")
		}))
		w := httptest.NewRecorder()
		h.Discovery(w, httptest.NewRequest(http.MethodGet, "/discovery", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var p Problem
		decode(t, w, &p)
		assert.Equal(t, "closed", p.Detail)
	})
}
