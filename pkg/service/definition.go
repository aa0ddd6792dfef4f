package service

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// Invoker is a tagged entry point of a service. Calling it enables one
// handler (a consumer, a listener, a schedule) and returns the Handler
// that runs it, or nil when there is nothing further to launch.
type Invoker struct {
	// Name is the method name, used in logs and errors.
	Name string

	// Position is the declaration order within the service type. Invokers
	// launch in ascending Position regardless of registration order.
	Position int

	// Start calls the invoker on a service value.
	Start func(ctx context.Context, svc any) (Handler, error)
}

// NewInvoker builds an Invoker from a method expression such as
// (*Orders).Consume.
func NewInvoker[T any](name string, position int, fn func(T, context.Context) (Handler, error)) Invoker {
	return Invoker{
		Name:     name,
		Position: position,
		Start: func(ctx context.Context, svc any) (Handler, error) {
			v, ok := svc.(T)
			if !ok {
				var want T
				return nil, fmt.Errorf("%w: invoker %s expects %T, got %T", ErrInvalidDefinition, name, want, svc)
			}
			return fn(v, ctx)
		},
	}
}

// Definition describes one service type of a module.
type Definition struct {
	// TypeName is used to derive a name when none is set explicitly.
	TypeName string

	// Name is an explicit service name. Empty means derived.
	Name string

	// LogLevel overrides DefaultLogLevel.
	LogLevel string

	// New constructs the service value. It is called once per run.
	New func() (any, error)

	Invokers  []Invoker
	Discovery []DiscoveryBackend
}

// Option configures a Definition.
type Option func(*Definition)

// WithName sets an explicit service name.
func WithName(name string) Option {
	return func(d *Definition) { d.Name = name }
}

// WithLogLevel sets the service log level.
func WithLogLevel(level string) Option {
	return func(d *Definition) { d.LogLevel = level }
}

// WithInvokers appends invokers to the definition.
func WithInvokers(invokers ...Invoker) Option {
	return func(d *Definition) { d.Invokers = append(d.Invokers, invokers...) }
}

// WithDiscovery attaches discovery backends, registered in the given order.
func WithDiscovery(backends ...DiscoveryBackend) Option {
	return func(d *Definition) { d.Discovery = append(d.Discovery, backends...) }
}

// Define registers a service type built by newFn.
//
//	service.Define("Orders", NewOrders,
//		service.WithInvokers(
//			service.NewInvoker("Consume", 1, (*Orders).Consume),
//		),
//	)
func Define[T any](typeName string, newFn func() (T, error), opts ...Option) Definition {
	d := Definition{TypeName: typeName}
	if newFn != nil {
		d.New = func() (any, error) {
			v, err := newFn()
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Validate checks the definition is complete.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.TypeName) == "" {
		return fmt.Errorf("%w: type name is required", ErrInvalidDefinition)
	}
	if d.New == nil {
		return fmt.Errorf("%w: %s has no constructor", ErrInvalidDefinition, d.TypeName)
	}
	seen := make(map[string]struct{}, len(d.Invokers))
	for _, inv := range d.Invokers {
		if inv.Name == "" || inv.Start == nil {
			return fmt.Errorf("%w: %s has an incomplete invoker", ErrInvalidDefinition, d.TypeName)
		}
		if _, ok := seen[inv.Name]; ok {
			return fmt.Errorf("%w: %s declares invoker %s twice", ErrInvalidDefinition, d.TypeName, inv.Name)
		}
		seen[inv.Name] = struct{}{}
	}
	return nil
}

// SortedInvokers returns the invokers ordered by declared position.
// Invokers sharing a position keep their registration order.
func (d Definition) SortedInvokers() []Invoker {
	out := append([]Invoker(nil), d.Invokers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Module groups the definitions of one program unit, the way a service
// file groups service classes.
type Module struct {
	// Name identifies the module in a Catalog. Defaults to the last
	// element of Path.
	Name string

	// Path is the dotted or slash-separated module path used for name
	// derivation, e.g. "shop.orders" or "shop/orders".
	Path string

	// File is the source file, reported in errors.
	File string

	Definitions []Definition
}

// Key returns the name the module is known by.
func (m Module) Key() string {
	if m.Name != "" {
		return m.Name
	}
	p := strings.ReplaceAll(m.Path, ".", "/")
	return path.Base(p)
}

// Catalog is a set of modules addressable by name.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewCatalog creates a catalog holding the given modules.
func NewCatalog(modules ...Module) (*Catalog, error) {
	c := &Catalog{modules: make(map[string]Module, len(modules))}
	for _, m := range modules {
		if err := c.Add(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add inserts a module; names must be unique.
func (c *Catalog) Add(m Module) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := m.Key()
	if _, ok := c.modules[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, key)
	}
	c.modules[key] = m
	return nil
}

// Lookup returns the module with the given name.
func (c *Catalog) Lookup(name string) (Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[name]
	return m, ok
}

// Modules returns all modules sorted by name.
func (c *Catalog) Modules() []Module {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Module, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
