package service

import (
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
)

// Discover constructs one instance per definition of mod, in definition
// order, and prepares each for a run:
//
//  1. construct the value (a panic counts as a failure)
//  2. take the context from Contexter, or decode it from exported fields
//  3. merge cfg onto the context and reconcile dotted option keys
//  4. assign a UUID, explicit name and log level
//  5. order invokers by declared position
//
// The first failure aborts discovery of the remaining definitions and no
// instance is returned.
func Discover(mod Module, cfg map[string]any) ([]*Instance, error) {
	instances := make([]*Instance, 0, len(mod.Definitions))

	for _, def := range mod.Definitions {
		if err := def.Validate(); err != nil {
			return nil, &InstantiationError{Module: mod.Key(), Type: def.TypeName, File: mod.File, Err: err}
		}

		value, err := construct(def)
		if err != nil {
			return nil, &InstantiationError{Module: mod.Key(), Type: def.TypeName, File: mod.File, Err: err}
		}

		inst := &Instance{
			UUID:       uuid.NewString(),
			Value:      value,
			Definition: def,
			Module:     mod,
			Invokers:   def.SortedInvokers(),
			Discovery:  append([]DiscoveryBackend(nil), def.Discovery...),
		}

		if c, ok := value.(Contexter); ok && len(c.ServiceContext()) > 0 {
			inst.Context = c.ServiceContext()
		} else {
			inst.Context = autoContext(value)
		}

		if err := Apply(inst, cfg); err != nil {
			return nil, err
		}

		inst.SetName(def.Name)
		if n, ok := value.(Named); ok && n.ServiceName() != "" {
			inst.SetName(n.ServiceName())
		}

		inst.LogLevel = DefaultLogLevel
		if def.LogLevel != "" {
			inst.LogLevel = def.LogLevel
		}
		if l, ok := value.(LogLeveled); ok && l.ServiceLogLevel() != "" {
			inst.LogLevel = l.ServiceLogLevel()
		}

		instances = append(instances, inst)
	}

	return instances, nil
}

func construct(def Definition) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	value, err = def.New()
	if err == nil && value == nil {
		err = fmt.Errorf("constructor for %s returned nil", def.TypeName)
	}
	return value, err
}
