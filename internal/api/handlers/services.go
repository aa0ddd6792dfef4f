package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/lifecycled/pkg/discovery"
	"github.com/marmos91/lifecycled/pkg/launcher"
)

// Lister lists the records held by a discovery backend.
type Lister interface {
	List(ctx context.Context) ([]discovery.Record, error)
}

// ServicesHandler exposes the named instances and the discovery records.
type ServicesHandler struct {
	source Source
	lister Lister
}

// NewServicesHandler creates a services handler. lister may be nil when
// no discovery backend is configured.
func NewServicesHandler(source Source, lister Lister) *ServicesHandler {
	return &ServicesHandler{source: source, lister: lister}
}

// List handles GET /services.
func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	services := h.source.Snapshot().Services
	if services == nil {
		services = []launcher.ServiceStatus{}
	}
	WriteJSONOK(w, services)
}

// Get handles GET /services/{name}.
func (h *ServicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, svc := range h.source.Snapshot().Services {
		if svc.Name == name {
			WriteJSONOK(w, svc)
			return
		}
	}
	NotFound(w, "service "+name+" not found")
}

// Status handles GET /status.
func (h *ServicesHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, h.source.Snapshot())
}

// Discovery handles GET /discovery.
func (h *ServicesHandler) Discovery(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		NotFound(w, "no discovery backend configured")
		return
	}

	records, err := h.lister.List(r.Context())
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	if records == nil {
		records = []discovery.Record{}
	}
	WriteJSONOK(w, records)
}
