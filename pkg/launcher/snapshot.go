package launcher

import (
	"github.com/marmos91/lifecycled/pkg/lifecycle"
)

// ServiceStatus describes one named instance.
type ServiceStatus struct {
	Name     string `json:"name" yaml:"name"`
	UUID     string `json:"uuid" yaml:"uuid"`
	Module   string `json:"module" yaml:"module"`
	Type     string `json:"type" yaml:"type"`
	LogLevel string `json:"log_level" yaml:"log_level"`
	Started  bool   `json:"started" yaml:"started"`
}

// ModuleStatus describes the current run of one module.
type ModuleStatus struct {
	Module   string          `json:"module" yaml:"module"`
	State    lifecycle.State `json:"state" yaml:"state"`
	Services []string        `json:"services" yaml:"services"`
}

// Snapshot is a point-in-time view of the launcher.
type Snapshot struct {
	// Ready is true once every module has published its started set and
	// is running.
	Ready    bool            `json:"ready" yaml:"ready"`
	ExitCode int             `json:"exit_code" yaml:"exit_code"`
	Restarts int             `json:"restarts" yaml:"restarts"`
	Modules  []ModuleStatus  `json:"modules" yaml:"modules"`
	Services []ServiceStatus `json:"services" yaml:"services"`
}

// Snapshot returns the current state of every module and every named
// instance, in registry name order.
func (l *Launcher) Snapshot() Snapshot {
	l.mu.Lock()
	current := append([]*lifecycle.Orchestrator(nil), l.current...)
	restarts := l.restarts
	l.mu.Unlock()

	snap := Snapshot{
		Ready:    len(current) > 0,
		ExitCode: l.status.Code(),
		Restarts: restarts,
	}

	started := map[string]bool{}
	for _, o := range current {
		ms := ModuleStatus{Module: o.Module().Key(), State: o.State(), Services: []string{}}
		records, ok := o.Started()
		if !ok || o.State() != lifecycle.StateRunning {
			snap.Ready = false
		}
		for _, r := range records {
			ms.Services = append(ms.Services, r.Name)
			started[r.Instance.UUID] = true
		}
		snap.Modules = append(snap.Modules, ms)
	}

	for _, inst := range l.registry.Instances() {
		snap.Services = append(snap.Services, ServiceStatus{
			Name:     inst.Name(),
			UUID:     inst.UUID,
			Module:   inst.Module.Key(),
			Type:     inst.Definition.TypeName,
			LogLevel: inst.LogLevel,
			Started:  started[inst.UUID],
		})
	}
	return snap
}
