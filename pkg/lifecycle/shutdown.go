package lifecycle

import (
	"context"
	"time"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/internal/telemetry"
	"github.com/marmos91/lifecycled/pkg/metrics"
	"github.com/marmos91/lifecycled/pkg/service"
	"go.uber.org/multierr"
)

// Stop requests shutdown. It is safe to call from any goroutine, any
// number of times, before or during Run.
func (o *Orchestrator) Stop() {
	if o.closed.Complete(struct{}{}) {
		logger.Debug("stop requested", logger.KeyModule, o.module.Key())
	}
}

// WaitStopped blocks until Stop has been called or ctx is done.
func (o *Orchestrator) WaitStopped(ctx context.Context) error {
	_, err := o.closed.Wait(WithTracker(ctx, o.tracker))
	return err
}

// shutdown runs the interrupt, deregistration and teardown phases for the
// started services. Failures here are logged and never change the exit
// status. Hooks get a context that survives cancellation of the run.
func (o *Orchestrator) shutdown(ctx context.Context, cancelRun context.CancelFunc, records []StartedService) {
	hookCtx := context.WithoutCancel(ctx)

	o.setState(StateInterrupting)
	interrupt := NewGroup(service.PhaseInterrupt)
	for _, svc := range records {
		lctx := o.lifecycleContext(hookCtx, svc)
		logger.DebugCtx(lctx, "-> lifecycle.interrupt")
		logger.InfoCtx(lctx, "stopping service", logger.KeyState, "stopping")

		if hook, ok := svc.Instance.Value.(service.InterruptHook); ok {
			interrupt.Go(o.serviceContext(hookCtx, svc), svc.Name, "StoppingService", hook.StoppingService)
		}
	}
	if interrupt.Len() > 0 && o.grace > 0 {
		time.Sleep(o.grace)
	}

	for _, svc := range records {
		logger.DebugCtx(o.lifecycleContext(hookCtx, svc), "-> lifecycle.teardown")
	}

	o.deregister(hookCtx)

	cancelRun()
	o.setState(StateTearingDown)

	teardown := NewGroup(service.PhaseTeardown)
	for _, svc := range records {
		if hook, ok := svc.Instance.Value.(service.TeardownHook); ok {
			teardown.Go(o.serviceContext(hookCtx, svc), svc.Name, "StopService", hook.StopService)
		}
	}
	o.settle(hookCtx, teardown)
	o.settle(hookCtx, interrupt)

	o.setState(StateTerminated)
	for _, svc := range records {
		logger.InfoCtx(o.lifecycleContext(hookCtx, svc), "terminated service", logger.KeyState, "terminated")
	}

	if o.debug {
		Sweep(o.tracker)
	}
}

// deregister tells every backend that accepted a service that it is going
// away, one call at a time in registration order. Every call is attempted.
func (o *Orchestrator) deregister(ctx context.Context) {
	o.mu.Lock()
	registered := append([]registration(nil), o.registered...)
	o.mu.Unlock()
	if len(registered) == 0 {
		return
	}

	ctx, span := telemetry.StartPhaseSpan(ctx, o.module.Key(), service.PhaseDeregister.String())
	defer span.End()
	start := time.Now()

	var errs []*service.HandlerError
	var combined error
	for _, r := range registered {
		dereg, ok := r.backend.(service.Deregisterer)
		if !ok {
			continue
		}
		inst := r.svc.Instance
		bctx := logger.WithContext(ctx, logger.FromContext(o.serviceContext(ctx, r.svc)).
			WithHandler(loggerName(service.PhaseDeregister), service.PhaseDeregister.String(), r.backend.Name()))

		if err := call(bctx, func(ctx context.Context) error { return dereg.DeregisterService(ctx, inst) }); err != nil {
			herr := &service.HandlerError{Service: r.svc.Name, Phase: service.PhaseDeregister, Handler: r.backend.Name(), Err: err}
			errs = append(errs, herr)
			combined = multierr.Append(combined, herr)
		}
	}

	metrics.ObservePhase(o.metrics, o.module.Key(), service.PhaseDeregister.String(), time.Since(start), len(errs))
	if combined != nil {
		telemetry.RecordError(ctx, combined)
		o.report(ctx, errs)
		logger.Warn("failed to deregister services",
			logger.KeyModule, o.module.Key(),
			logger.KeyCount, len(errs),
		)
	}
}
