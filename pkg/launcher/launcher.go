// Package launcher runs a set of modules until the process is asked to
// stop, restarting them when their configuration changes.
package launcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/internal/telemetry"
	"github.com/marmos91/lifecycled/pkg/lifecycle"
	"github.com/marmos91/lifecycled/pkg/metrics"
	"github.com/marmos91/lifecycled/pkg/registry"
	"github.com/marmos91/lifecycled/pkg/service"
	"github.com/sourcegraph/conc"
)

// DefaultRestartDelay is how long the launcher waits before retrying a
// restarted run that exited with errors.
const DefaultRestartDelay = 1500 * time.Millisecond

// ReloadFunc loads a fresh services configuration before a restart.
type ReloadFunc func(ctx context.Context) (map[string]any, error)

// Options configures a Launcher.
type Options struct {
	// Modules are run concurrently, one orchestrator each.
	Modules []service.Module

	// Services is merged into every instance of every module.
	Services map[string]any

	// Reload is called by Restart. When nil, the current Services are kept.
	Reload ReloadFunc

	// Discovery backends are attached to every instance.
	Discovery []service.DiscoveryBackend

	InterruptGrace time.Duration
	RestartDelay   time.Duration
	Debug          bool

	// Metrics may be nil.
	Metrics metrics.LifecycleMetrics
}

// Launcher owns the state shared by every run: the instance registry, the
// exit status and the task tracker.
type Launcher struct {
	opts     Options
	registry *registry.Registry
	status   *lifecycle.ExitStatus
	tracker  *lifecycle.Tracker

	// closed wakes a pending retry delay once Stop is called.
	closed lifecycle.Signal[struct{}]

	mu        sync.Mutex
	services  map[string]any
	current   []*lifecycle.Orchestrator
	iteration *lifecycle.Signal[struct{}]
	restart   bool
	stopped   bool
	restarts  int
}

// New creates a Launcher.
func New(opts Options) *Launcher {
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	return &Launcher{
		opts:     opts,
		registry: registry.New(),
		status:   &lifecycle.ExitStatus{},
		tracker:  lifecycle.NewTracker(),
		services: opts.Services,
	}
}

// Registry returns the registry shared by every run.
func (l *Launcher) Registry() *registry.Registry { return l.registry }

// Status returns the exit status shared by every run.
func (l *Launcher) Status() *lifecycle.ExitStatus { return l.status }

// Run starts every module and blocks until they have all terminated and
// no restart is pending. It returns the process exit code.
func (l *Launcher) Run(ctx context.Context) int {
	stopOnCancel := context.AfterFunc(ctx, l.Stop)
	defer stopOnCancel()

	ctx = lifecycle.WithTracker(ctx, l.tracker)

	restarting := false
	for {
		orchestrators, iteration, ok := l.begin()
		if !ok {
			break
		}

		l.runAll(ctx, orchestrators)

		l.mu.Lock()
		again := l.restart && !l.stopped
		retry := restarting && !again && !l.stopped && l.status.Failed() && !iteration.IsDone()
		l.current = nil
		l.mu.Unlock()

		if retry {
			logger.Warn("service exited due to errors", logger.KeyError, l.status.Err())
			logger.Warn(fmt.Sprintf("trying again in %s seconds", formatSeconds(l.opts.RestartDelay)))
			metrics.RecordRestart(l.opts.Metrics, "error")
			l.countRestart()

			select {
			case <-time.After(l.opts.RestartDelay):
				again = true
			case <-l.closed.Done():
			}
		}

		if !again {
			break
		}
		restarting = true
	}

	return l.status.Code()
}

// begin prepares one iteration of the run loop. All orchestrators are
// created under the lock so that a concurrent Stop either prevents the
// iteration or sees every orchestrator of it.
func (l *Launcher) begin() ([]*lifecycle.Orchestrator, *lifecycle.Signal[struct{}], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return nil, nil, false
	}

	l.registry.Clear()
	l.status.Reset()
	l.restart = false
	l.iteration = &lifecycle.Signal[struct{}]{}

	l.current = make([]*lifecycle.Orchestrator, 0, len(l.opts.Modules))
	for _, mod := range l.opts.Modules {
		l.current = append(l.current, lifecycle.New(lifecycle.Options{
			Module:         mod,
			Config:         l.services,
			Registry:       l.registry,
			Status:         l.status,
			Tracker:        l.tracker,
			Discovery:      l.opts.Discovery,
			InterruptGrace: l.opts.InterruptGrace,
			Debug:          l.opts.Debug,
			Metrics:        l.opts.Metrics,
		}))
	}
	return l.current, l.iteration, true
}

// runAll runs every orchestrator concurrently and waits for all of them.
func (l *Launcher) runAll(ctx context.Context, orchestrators []*lifecycle.Orchestrator) {
	var wg conc.WaitGroup
	for _, o := range orchestrators {
		wg.Go(func() {
			telemetry.ProfileModule(ctx, o.Module().Key(), func(ctx context.Context) {
				_ = o.Run(ctx)
			})
		})
	}
	wg.Wait()
}

// Stop stops every running module and ends the run loop. It is safe to
// call from a signal handler goroutine, more than once.
func (l *Launcher) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.restart = false
	iteration, current := l.iteration, l.current
	l.mu.Unlock()

	if iteration != nil {
		iteration.Complete(struct{}{})
	}
	for _, o := range current {
		o.Stop()
	}
	l.closed.Complete(struct{}{})
}

// Restart reloads the configuration and restarts every module with it.
// When the reload fails, the running modules are left alone.
func (l *Launcher) Restart(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRestart)
	defer span.End()

	if l.opts.Reload != nil {
		services, err := l.opts.Reload(ctx)
		if err != nil {
			telemetry.RecordError(ctx, err)
			logger.Warn("restart failed due to error", logger.KeyError, err)
			return err
		}
		l.mu.Lock()
		l.services = services
		l.mu.Unlock()
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.restart = true
	iteration, current := l.iteration, l.current
	l.mu.Unlock()

	logger.Warn("restarting services")
	metrics.RecordRestart(l.opts.Metrics, "reload")
	l.countRestart()

	if iteration != nil {
		iteration.Complete(struct{}{})
	}
	for _, o := range current {
		o.Stop()
	}
	return nil
}

func (l *Launcher) countRestart() {
	l.mu.Lock()
	l.restarts++
	l.mu.Unlock()
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%g", d.Seconds())
}
