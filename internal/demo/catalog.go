// Package demo holds the built-in example modules the lifecycled CLI can
// run without any user code.
package demo

import "github.com/marmos91/lifecycled/pkg/service"

// Catalog returns the built-in modules:
//
//   - orders: every hook plus a queue consumer invoker
//   - scheduler: a cron schedule invoker
//   - noop: no hooks at all, so it never starts
func Catalog() *service.Catalog {
	c, err := service.NewCatalog(Orders(), Scheduler(), Noop())
	if err != nil {
		panic("demo: " + err.Error())
	}
	return c
}

// Noop returns a module whose only service has nothing to run.
func Noop() service.Module {
	return service.Module{
		Path: "demo.noop",
		File: "internal/demo/catalog.go",
		Definitions: []service.Definition{
			service.Define("Idle", func() (*Idle, error) { return &Idle{}, nil }),
		},
	}
}

// Idle implements no hooks.
type Idle struct{}
