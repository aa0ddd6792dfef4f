// Package lifecycle drives the services of one module through a single
// run: discovery and naming, setup, two invoker waves, discovery
// registration, the ready phase, and an orderly shutdown.
//
// Forward phases are fatal: the first failure records an exit status of
// 1, skips every later forward phase and starts shutdown. Shutdown phases
// only log their failures. Interrupt, deregistration and teardown always
// run for the services that were started, whatever happened before.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/internal/telemetry"
	"github.com/marmos91/lifecycled/pkg/metrics"
	"github.com/marmos91/lifecycled/pkg/registry"
	"github.com/marmos91/lifecycled/pkg/service"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrAlreadyRun is returned when Run is called on an orchestrator that
// has already run. Orchestrators are single-use.
var ErrAlreadyRun = errors.New("orchestrator has already run")

// DefaultInterruptGrace is how long shutdown yields after launching
// interrupt hooks, before deregistration and teardown begin.
const DefaultInterruptGrace = 10 * time.Millisecond

// Options configures an Orchestrator.
type Options struct {
	// Module holds the service definitions to run.
	Module service.Module

	// Config is merged into every instance context before the run.
	Config map[string]any

	// Registry receives the named instances. Shared across the runs of a
	// launcher; a fresh one is created when nil.
	Registry *registry.Registry

	// Status records the process exit outcome. Shared across the runs of
	// a launcher; a fresh one is created when nil.
	Status *ExitStatus

	// Tracker records background goroutines for the shutdown sweep.
	Tracker *Tracker

	// Discovery backends are attached to every instance after the ones
	// its definition declares.
	Discovery []service.DiscoveryBackend

	// InterruptGrace overrides DefaultInterruptGrace. Negative disables it.
	InterruptGrace time.Duration

	// Debug enables the pending-task sweep. It is also enabled by the
	// LIFECYCLED_DEBUG environment variable.
	Debug bool

	// Metrics may be nil.
	Metrics metrics.LifecycleMetrics
}

// StartedService is one entry of the started set published once startup
// has settled.
type StartedService struct {
	Name     string
	Instance *service.Instance
	LogLevel string
}

// Orchestrator runs the services of one module once.
type Orchestrator struct {
	module    service.Module
	config    map[string]any
	registry  *registry.Registry
	status    *ExitStatus
	tracker   *Tracker
	discovery []service.DiscoveryBackend
	grace     time.Duration
	debug     bool
	metrics   metrics.LifecycleMetrics

	closed  Signal[struct{}]
	started Signal[[]StartedService]

	ran     atomic.Bool
	state   atomic.Int32
	aborted atomic.Bool

	mu         sync.Mutex
	err        error
	registered []registration
}

// registration is a discovery backend that accepted a service and must be
// told when it goes away.
type registration struct {
	svc     StartedService
	backend service.DiscoveryBackend
}

// New creates an Orchestrator for opts.Module.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		module:    opts.Module,
		config:    opts.Config,
		registry:  opts.Registry,
		status:    opts.Status,
		tracker:   opts.Tracker,
		discovery: opts.Discovery,
		grace:     opts.InterruptGrace,
		debug:     opts.Debug || DebugEnabled(),
		metrics:   opts.Metrics,
	}
	if o.registry == nil {
		o.registry = registry.New()
	}
	if o.status == nil {
		o.status = &ExitStatus{}
	}
	if o.tracker == nil {
		o.tracker = NewTracker()
	}
	switch {
	case o.grace == 0:
		o.grace = DefaultInterruptGrace
	case o.grace < 0:
		o.grace = 0
	}
	return o
}

// Module returns the module this orchestrator runs.
func (o *Orchestrator) Module() service.Module { return o.module }

// Registry returns the registry the instances were named in.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// Status returns the shared exit status.
func (o *Orchestrator) Status() *ExitStatus { return o.status }

// Tracker returns the task tracker.
func (o *Orchestrator) Tracker() *Tracker { return o.tracker }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Err returns the first fatal error of this run, if any.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Started returns the started set once it has been published.
func (o *Orchestrator) Started() ([]StartedService, bool) {
	return o.started.Value()
}

// WaitStarted blocks until the started set is published or ctx is done.
// The set is published even when startup fails, possibly empty.
func (o *Orchestrator) WaitStarted(ctx context.Context) ([]StartedService, error) {
	return o.started.Wait(WithTracker(ctx, o.tracker))
}

// Run executes the whole lifecycle and returns once every started service
// has been torn down. It blocks between startup and shutdown until Stop
// is called or ctx is cancelled. The returned error is the first fatal
// error of this run; the shared ExitStatus carries the process outcome.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	defer o.tracker.Enter()()

	ctx = WithTracker(ctx, o.tracker)
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRun, traceAttrs(o.module)...)
	defer span.End()

	stopOnCancel := context.AfterFunc(ctx, o.Stop)
	defer stopOnCancel()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	records := o.prepare(runCtx)
	if len(records) > 0 {
		o.startup(runCtx, records)
	}
	o.publish(records)

	<-o.closed.Done()

	o.shutdown(ctx, cancelRun, records)

	err := o.Err()
	telemetry.RecordError(ctx, err)
	return err
}

// prepare discovers the module's instances, names them in the registry
// and returns the ones that take part in the run.
func (o *Orchestrator) prepare(ctx context.Context) []StartedService {
	mod := o.module

	instances, err := service.Discover(mod, o.config)
	if err != nil {
		logger.Error(discoveryMessage(err),
			logger.KeyModule, mod.Key(),
			logger.KeyFilePath, mod.File,
			logger.KeyError, err,
		)
		logger.Warn("error during initializing", logger.KeyModule, mod.Key())
		o.fail(ctx, err)
		o.Stop()
		return nil
	}

	for _, inst := range instances {
		inst.Discovery = append(inst.Discovery, o.discovery...)
		if name := inst.Name(); name != "" {
			if err := o.registry.Set(name, inst); err != nil {
				logger.Error("failed to name service instance",
					logger.KeyModule, mod.Key(),
					logger.KeyClass, inst.Definition.TypeName,
					logger.KeyError, err,
				)
				o.fail(ctx, err)
				o.Stop()
				return nil
			}
			continue
		}
		o.registry.Assign(registry.DeriveName(mod.Path, inst.Definition.TypeName), inst)
	}

	var records []StartedService
	for _, inst := range instances {
		if !inst.Participates() {
			continue
		}
		records = append(records, StartedService{Name: inst.Name(), Instance: inst, LogLevel: inst.LogLevel})
	}

	if len(records) == 0 {
		logger.Warn("no transport handlers defined",
			logger.KeyModule, mod.Key(),
			logger.KeyFilePath, mod.File,
		)
		o.fail(ctx, &service.NoHandlersError{Module: mod.Key(), File: mod.File})
		o.Stop()
		return nil
	}

	return records
}

func discoveryMessage(err error) string {
	var conflict *service.ConfigurationConflictError
	var cfgErr *service.ConfigurationError
	switch {
	case errors.As(err, &conflict):
		return "failed to setup options"
	case errors.As(err, &cfgErr):
		return "failed to setup config"
	default:
		return "failed to initialize instance"
	}
}

// startup runs the forward phases. The first invoker wave starts at the
// same time as the setup hooks; the second wave only after both settle.
func (o *Orchestrator) startup(ctx context.Context, records []StartedService) {
	o.setState(StateSetup)

	type launch struct {
		svc StartedService
		inv service.Invoker
	}

	for _, svc := range records {
		lctx := o.lifecycleContext(ctx, svc)
		logger.InfoCtx(lctx, "initializing service instance",
			logger.KeyUUID, svc.Instance.UUID,
			logger.KeyClass, svc.Instance.Definition.TypeName,
		)
		logger.InfoCtx(lctx, "starting the service", logger.KeyState, "starting")
		logger.DebugCtx(lctx, "-> lifecycle.setup")
	}

	var first []launch
	for _, svc := range records {
		for _, inv := range svc.Instance.Invokers {
			first = append(first, launch{svc: svc, inv: inv})
		}
	}

	handlers := make([]service.Handler, len(first))
	invokers := NewGroup(service.PhaseInvoker)
	for i, l := range first {
		invokers.Go(o.serviceContext(ctx, l.svc), l.svc.Name, l.inv.Name, func(ctx context.Context) error {
			h, err := l.inv.Start(ctx, l.svc.Instance.Value)
			handlers[i] = h
			return err
		})
	}

	setup := NewGroup(service.PhaseSetup)
	for _, svc := range records {
		if hook, ok := svc.Instance.Value.(service.SetupHook); ok {
			setup.Go(o.serviceContext(ctx, svc), svc.Name, "StartService", hook.StartService)
		}
	}

	if o.halt(ctx, records, o.settle(ctx, setup)) {
		o.settle(ctx, invokers)
		return
	}

	o.setState(StateInvoking)
	if o.halt(ctx, records, o.settle(ctx, invokers)) {
		return
	}

	second := NewGroup(service.PhaseHandler)
	for i, h := range handlers {
		if h == nil {
			continue
		}
		l := first[i]
		second.Go(o.serviceContext(ctx, l.svc), l.svc.Name, l.inv.Name, h)
	}
	if o.halt(ctx, records, o.settle(ctx, second)) {
		return
	}

	if o.closed.IsDone() || o.started.IsDone() {
		return
	}

	o.setState(StateReady)
	if err := o.register(ctx, records); err != nil {
		errs := []*service.HandlerError{err}
		o.report(ctx, errs)
		o.halt(ctx, records, errs)
		return
	}

	ready := NewGroup(service.PhaseReady)
	for _, svc := range records {
		if hook, ok := svc.Instance.Value.(service.ReadyHook); ok {
			ready.Go(o.serviceContext(ctx, svc), svc.Name, "StartedService", hook.StartedService)
		}
		logger.InfoCtx(o.lifecycleContext(ctx, svc), "enabled handler functions", logger.KeyState, "initialized")
	}
	o.halt(ctx, records, o.settle(ctx, ready))
}

// halt aborts the run on the first fatal error in errs and reports
// whether it did.
func (o *Orchestrator) halt(ctx context.Context, records []StartedService, errs []*service.HandlerError) bool {
	for _, err := range errs {
		if !err.Fatal() {
			continue
		}
		o.abort(ctx, records)
		o.fail(ctx, err)
		o.Stop()
		return true
	}
	return false
}

// register announces every started service to its discovery backends,
// one call at a time in attachment order. The first failure stops the
// phase; backends that accepted a service are remembered for shutdown.
func (o *Orchestrator) register(ctx context.Context, records []StartedService) *service.HandlerError {
	ctx, span := telemetry.StartPhaseSpan(ctx, o.module.Key(), service.PhaseRegister.String())
	defer span.End()
	start := time.Now()

	for _, svc := range records {
		for _, backend := range svc.Instance.Discovery {
			if reg, ok := backend.(service.Registerer); ok {
				inst := svc.Instance
				bctx := logger.WithContext(ctx, logger.FromContext(o.serviceContext(ctx, svc)).
					WithHandler(loggerName(service.PhaseRegister), service.PhaseRegister.String(), backend.Name()))

				err := call(bctx, func(ctx context.Context) error { return reg.RegisterService(ctx, inst) })
				if err != nil {
					metrics.ObservePhase(o.metrics, o.module.Key(), service.PhaseRegister.String(), time.Since(start), 1)
					telemetry.RecordError(ctx, err)
					return &service.HandlerError{Service: svc.Name, Phase: service.PhaseRegister, Handler: backend.Name(), Err: err}
				}
			}

			o.mu.Lock()
			o.registered = append(o.registered, registration{svc: svc, backend: backend})
			o.mu.Unlock()
		}
	}

	metrics.ObservePhase(o.metrics, o.module.Key(), service.PhaseRegister.String(), time.Since(start), 0)
	return nil
}

// publish completes the started signal with records. Success is only
// logged when shutdown has not been requested in the meantime.
func (o *Orchestrator) publish(records []StartedService) {
	if records == nil {
		records = []StartedService{}
	}
	if o.started.IsDone() {
		return
	}

	if !o.closed.IsDone() {
		for _, svc := range records {
			logger.InfoCtx(o.lifecycleContext(context.Background(), svc), "started service successfully", logger.KeyState, "ready")
		}
		o.setState(StateRunning)
	}
	metrics.SetStartedServices(o.metrics, o.module.Key(), len(records))
	o.started.Complete(records)
}

// settle waits for g inside a phase span, records its metrics and reports
// every error it produced.
func (o *Orchestrator) settle(ctx context.Context, g *Group) []*service.HandlerError {
	ctx, span := telemetry.StartPhaseSpan(ctx, o.module.Key(), g.phase.String(),
		attribute.Int(telemetry.AttrTasks, g.Len()))
	defer span.End()

	errs := g.Wait()
	span.SetAttributes(attribute.Int(telemetry.AttrFailures, len(errs)))
	for _, err := range errs {
		telemetry.RecordError(ctx, err)
	}
	metrics.ObservePhase(o.metrics, o.module.Key(), g.phase.String(), g.Elapsed(), len(errs))

	o.report(ctx, errs)
	return errs
}

// report logs each error with the phase and handler that produced it.
func (o *Orchestrator) report(ctx context.Context, errs []*service.HandlerError) {
	for _, err := range errs {
		lc := logger.NewLogContext(err.Service, logger.LevelDebug).
			WithHandler(loggerName(err.Phase), err.Phase.String(), err.Handler)
		lctx := logger.WithContext(ctx, lc)

		var panicErr *service.PanicError
		if errors.As(err, &panicErr) {
			logger.ErrorCtx(lctx, "uncaught exception", logger.KeyError, err.Err, "stack", string(panicErr.Stack))
			continue
		}
		logger.ErrorCtx(lctx, "uncaught exception", logger.KeyError, err.Err)
	}
}

// abort marks the run as aborted and logs it once per started service.
func (o *Orchestrator) abort(ctx context.Context, records []StartedService) {
	if !o.aborted.CompareAndSwap(false, true) {
		return
	}
	o.state.Store(int32(StateAborted))
	metrics.SetState(o.metrics, o.module.Key(), StateAborted.String())

	for _, svc := range records {
		lctx := o.lifecycleContext(ctx, svc)
		logger.WarnCtx(lctx, "failed to start service", logger.KeyState, "aborting")
		logger.DebugCtx(lctx, "-> lifecycle.abort")
	}
}

// fail records err as the run's first fatal error and fails the shared
// exit status.
func (o *Orchestrator) fail(ctx context.Context, err error) {
	o.mu.Lock()
	if o.err == nil {
		o.err = err
	}
	o.mu.Unlock()

	o.status.Fail(err)
	telemetry.RecordError(ctx, err)
}

func (o *Orchestrator) setState(s State) {
	if o.aborted.Load() {
		return
	}
	o.state.Store(int32(s))
	metrics.SetState(o.metrics, o.module.Key(), s.String())
}

// serviceContext scopes ctx to a service for its own hooks: the service
// log level applies to everything the hooks log.
func (o *Orchestrator) serviceContext(ctx context.Context, svc StartedService) context.Context {
	level, err := logger.ParseLevel(svc.LogLevel)
	if err != nil {
		level = logger.LevelInfo
	}
	lc := logger.NewLogContext(svc.Name, level).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	return logger.WithContext(ctx, lc)
}

// lifecycleContext scopes ctx to a service for the orchestrator's own log
// entries, which are not filtered by the service log level.
func (o *Orchestrator) lifecycleContext(ctx context.Context, svc StartedService) context.Context {
	lc := logger.NewLogContext(svc.Name, logger.LevelDebug).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	lc.Logger = "lifecycled.lifecycle"
	return logger.WithContext(ctx, lc)
}

func traceAttrs(mod service.Module) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(telemetry.Module(mod.Key()))}
}
