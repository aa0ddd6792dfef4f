package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDefinition indicates a Definition that cannot be instantiated:
	// missing type name or constructor, or an invoker without a name.
	ErrInvalidDefinition = errors.New("invalid service definition")

	// ErrDuplicateModule indicates a Catalog already holds a module with the same name.
	ErrDuplicateModule = errors.New("module already exists")
)

// InstantiationError reports a service definition whose constructor failed.
// One broken definition aborts the whole module load.
type InstantiationError struct {
	// Module is the name of the module being loaded.
	Module string

	// Type is the TypeName of the failing definition.
	Type string

	// File is the module's source file, when known.
	File string

	// Err is the constructor error (or recovered panic).
	Err error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to initialize instance: %s (module=%s, type=%s, file=%s)",
		e.Err, e.Module, e.Type, e.File)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ConfigurationConflictError reports a dotted option key whose value
// differs from a value already present at the same nested path.
type ConfigurationConflictError struct {
	Key      string
	Value    any
	Existing any
}

func (e *ConfigurationConflictError) Error() string {
	return fmt.Sprintf("mismatching options for '%s': (%T) \"%v\" and (%T) \"%v\" differs",
		e.Key, e.Value, e.Value, e.Existing, e.Existing)
}

// ConfigurationError reports a merged configuration that could not be
// decoded onto the service value.
type ConfigurationError struct {
	Service string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("failed to setup config for %s: %s", e.Service, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// HandlerError wraps an error returned (or a panic raised) by a hook, an
// invoker, an invoker's handler, or a discovery backend call. Phase records
// which part of the lifecycle produced it.
type HandlerError struct {
	Service string
	Phase   Phase
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %s (service=%s, handler=%s)", e.Phase, e.Err, e.Service, e.Handler)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error fails the run. Errors from the forward
// phases are fatal; interrupt, deregistration and teardown errors are advisory.
func (e *HandlerError) Fatal() bool {
	return e.Phase.Fatal()
}

// NoHandlersError reports a module in which no service exposed an invoker,
// a setup hook or a ready hook.
type NoHandlersError struct {
	Module string
	File   string
}

func (e *NoHandlersError) Error() string {
	return "no transport handlers defined"
}

// PanicError is the error recorded when a hook panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
