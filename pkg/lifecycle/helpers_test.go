package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/service"
	"github.com/stretchr/testify/require"
)

// events is a concurrency-safe journal of what the fake services did.
type events struct {
	mu   sync.Mutex
	list []string
}

func (e *events) add(ev string) {
	e.mu.Lock()
	e.list = append(e.list, ev)
	e.mu.Unlock()
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}

func (e *events) index(ev string) int {
	for i, v := range e.all() {
		if v == ev {
			return i
		}
	}
	return -1
}

// full implements every hook.
type full struct {
	id          string
	ev          *events
	setupErr    error
	readyErr    error
	teardownErr error
	panicSetup  bool
}

func (f *full) StartService(context.Context) error {
	f.ev.add(f.id + ":setup")
	if f.panicSetup {
		panic("setup exploded")
	}
	return f.setupErr
}

func (f *full) StartedService(context.Context) error {
	f.ev.add(f.id + ":ready")
	return f.readyErr
}

func (f *full) StoppingService(context.Context) error {
	f.ev.add(f.id + ":interrupt")
	return errors.New("interrupt failures are only logged")
}

func (f *full) StopService(context.Context) error {
	f.ev.add(f.id + ":teardown")
	return f.teardownErr
}

type readyOnly struct{ ev *events }

func (r *readyOnly) StartedService(context.Context) error {
	r.ev.add("ready")
	return nil
}

type teardownOnly struct{ ev *events }

func (t *teardownOnly) StopService(context.Context) error {
	t.ev.add("teardown")
	return nil
}

// slowStarter fails setup while its invoker is still starting.
type slowStarter struct{ ev *events }

func (s *slowStarter) StartService(context.Context) error {
	s.ev.add("setup")
	return errors.New("config missing")
}

func (s *slowStarter) StopService(context.Context) error {
	s.ev.add("teardown")
	return nil
}

func slowInvoker(s *slowStarter, _ context.Context) (service.Handler, error) {
	time.Sleep(100 * time.Millisecond)
	s.ev.add("invoker-done")
	return func(context.Context) error {
		s.ev.add("handler")
		return nil
	}, nil
}

// worker exposes three invokers whose handlers record themselves.
type worker struct {
	ev         *events
	handlerErr error
}

func workerInvoker(name string) func(*worker, context.Context) (service.Handler, error) {
	return func(w *worker, _ context.Context) (service.Handler, error) {
		w.ev.add("invoke:" + name)
		return func(context.Context) error {
			w.ev.add("handler:" + name)
			if name == "b" {
				return w.handlerErr
			}
			return nil
		}, nil
	}
}

func (w *worker) StartedService(context.Context) error {
	w.ev.add("worker:ready")
	return nil
}

func workerDefinition(ev *events, handlerErr error, opts ...service.Option) service.Definition {
	opts = append(opts, service.WithInvokers(
		service.NewInvoker("c", 3, workerInvoker("c")),
		service.NewInvoker("a", 1, workerInvoker("a")),
		service.NewInvoker("b", 2, workerInvoker("b")),
	))
	return service.Define("Worker", func() (*worker, error) {
		return &worker{ev: ev, handlerErr: handlerErr}, nil
	}, opts...)
}

// discoveryRecorder is a discovery backend that journals its calls.
type discoveryRecorder struct {
	name        string
	ev          *events
	registerErr error
}

func (d *discoveryRecorder) Name() string { return d.name }

func (d *discoveryRecorder) RegisterService(_ context.Context, inst *service.Instance) error {
	d.ev.add(d.name + ":register:" + inst.Name())
	return d.registerErr
}

func (d *discoveryRecorder) DeregisterService(_ context.Context, inst *service.Instance) error {
	d.ev.add(d.name + ":deregister:" + inst.Name())
	return nil
}

// runAsync starts o.Run in a goroutine and returns a channel with its result.
func runAsync(t *testing.T, o *Orchestrator) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		require.FailNow(t, "run did not return")
		return nil
	}
}

func waitStarted(t *testing.T, o *Orchestrator) []StartedService {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	started, err := o.WaitStarted(ctx)
	require.NoError(t, err)
	return started
}

// lockedBuffer is a bytes.Buffer safe for the logger and the test to share.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs redirects the process logger into a buffer for the test.
func captureLogs(t *testing.T) *lockedBuffer {
	t.Helper()
	buf := &lockedBuffer{}
	logger.InitWithWriter(buf, "DEBUG", "text", false)
	t.Cleanup(func() { logger.InitWithWriter(os.Stdout, "INFO", "text", false) })
	return buf
}
