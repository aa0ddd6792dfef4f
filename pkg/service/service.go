// Package service defines the building blocks the lifecycle orchestrator
// consumes: service definitions registered per module, the instances
// created from them, the optional lifecycle hooks a service value may
// implement, and the configuration merge rules applied before a run.
package service

import (
	"context"
	"sync"
)

// Handler enables the work an invoker prepared, such as a consumer loop.
// Handlers are launched in the second invoker wave and awaited before the
// service counts as started, so anything long-running must be started in
// its own goroutine bound to ctx.
type Handler func(ctx context.Context) error

// SetupHook is implemented by services that need to prepare before any
// handler is enabled.
type SetupHook interface {
	StartService(ctx context.Context) error
}

// ReadyHook is called once every handler has been started and discovery
// backends have been notified.
type ReadyHook interface {
	StartedService(ctx context.Context) error
}

// InterruptHook is called as soon as shutdown begins, before teardown.
type InterruptHook interface {
	StoppingService(ctx context.Context) error
}

// TeardownHook releases whatever the service acquired.
type TeardownHook interface {
	StopService(ctx context.Context) error
}

// Named lets a service value pick its own name.
type Named interface {
	ServiceName() string
}

// LogLeveled lets a service value pick its own log level.
type LogLeveled interface {
	ServiceLogLevel() string
}

// Contexter lets a service value supply its context mapping explicitly.
// Values without it get a context decoded from their exported fields.
type Contexter interface {
	ServiceContext() map[string]any
}

// DiscoveryBackend is an external registry a service announces itself to.
// Backends may implement Registerer and Deregisterer; both are optional.
type DiscoveryBackend interface {
	Name() string
}

// Registerer is implemented by discovery backends that record started services.
type Registerer interface {
	RegisterService(ctx context.Context, inst *Instance) error
}

// Deregisterer is implemented by discovery backends that remove services on shutdown.
type Deregisterer interface {
	DeregisterService(ctx context.Context, inst *Instance) error
}

// DefaultLogLevel is used when neither the value nor its definition sets one.
const DefaultLogLevel = "INFO"

// Instance is one constructed service value together with its runtime identity.
type Instance struct {
	mu   sync.RWMutex
	name string

	// UUID is generated once per instance.
	UUID string

	// Value is what the definition's constructor returned.
	Value any

	// Context is the configuration/state mapping of the instance.
	Context map[string]any

	// LogLevel is the minimum level for this service's own log entries.
	LogLevel string

	// Discovery lists the backends the instance registers with, in order.
	Discovery []DiscoveryBackend

	// Invokers are sorted by declared position.
	Invokers []Invoker

	Definition Definition
	Module     Module
}

// Name returns the current name. It may change once, when a later
// instance of the same type forces a rename to the -0001 suffix.
func (i *Instance) Name() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.name
}

// SetName updates the instance name. Only the registry renames instances.
func (i *Instance) SetName(name string) {
	i.mu.Lock()
	i.name = name
	i.mu.Unlock()
}

// HasSetup reports whether the value implements SetupHook.
func (i *Instance) HasSetup() bool {
	_, ok := i.Value.(SetupHook)
	return ok
}

// HasReady reports whether the value implements ReadyHook.
func (i *Instance) HasReady() bool {
	_, ok := i.Value.(ReadyHook)
	return ok
}

// HasTeardown reports whether the value implements TeardownHook.
func (i *Instance) HasTeardown() bool {
	_, ok := i.Value.(TeardownHook)
	return ok
}

// Participates reports whether the instance joins the started set: it
// must expose at least one invoker, a setup hook or a ready hook.
func (i *Instance) Participates() bool {
	return len(i.Invokers) > 0 || i.HasSetup() || i.HasReady()
}
