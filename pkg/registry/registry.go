package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/marmos91/lifecycled/pkg/service"
)

// Registry maps service names to running instances. It holds at most one
// instance per name and is safe for concurrent use.
//
// A registry is owned by whoever drives a run (an orchestrator or a
// launcher) and is cleared between runs:
//
//	reg := registry.New()
//	name := reg.Assign(registry.DeriveName("shop.orders", "Orders"), inst)
//	inst, ok := reg.Get(name)
type Registry struct {
	mu       sync.RWMutex
	services map[string]*service.Instance
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{services: make(map[string]*service.Instance)}
}

// Set records inst under name, replacing any previous entry, and updates
// the instance name to match.
func (r *Registry) Set(name string, inst *service.Instance) error {
	if inst == nil {
		return fmt.Errorf("cannot register nil instance")
	}
	if name == "" {
		return fmt.Errorf("cannot register instance with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inst.SetName(name)
	r.services[name] = inst
	return nil
}

// Get returns the instance registered under name.
func (r *Registry) Get(name string) (*service.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.services[name]
	return inst, ok
}

// Unset removes name. Removing an unknown name is a no-op.
func (r *Registry) Unset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.services, name)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.services = make(map[string]*service.Instance)
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.services)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instances returns the registered instances sorted by name.
func (r *Registry) Instances() []*service.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*service.Instance, 0, len(names))
	for _, name := range names {
		out = append(out, r.services[name])
	}
	return out
}

// Assign picks a free name for inst derived from base and registers it,
// all under one lock.
//
// The first instance of a type gets the bare base name. When a second one
// arrives and no "-0001" entry exists yet, the first is renamed to
// base-0001 and the newcomer takes the next free four-digit suffix, so no
// instance keeps a privileged unsuffixed name once its type repeats.
func (r *Registry) Assign(base string, inst *service.Instance) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := suffixed(base, 1)
	_, hasBase := r.services[base]
	_, hasFirst := r.services[first]

	name := base
	if hasBase || hasFirst {
		if hasBase && !hasFirst {
			other := r.services[base]
			delete(r.services, base)
			other.SetName(first)
			r.services[first] = other
		}

		for i := 1; ; i++ {
			candidate := suffixed(base, i)
			if _, taken := r.services[candidate]; !taken {
				name = candidate
				break
			}
		}
	}

	inst.SetName(name)
	r.services[name] = inst
	return name
}

func suffixed(base string, n int) string {
	return fmt.Sprintf("%s-%04d", base, n)
}
