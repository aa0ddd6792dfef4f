package lifecycle

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/service"
	"github.com/sourcegraph/conc/pool"
)

// Group runs the tasks of one lifecycle phase concurrently and collects
// their errors. A panicking task is recovered and reported like an error;
// it never takes down the other tasks of the group.
type Group struct {
	phase   service.Phase
	pool    *pool.Pool
	started time.Time

	mu       sync.Mutex
	errs     []*service.HandlerError
	count    int
	waitOnce sync.Once
	results  []*service.HandlerError
}

// NewGroup creates an empty Group for phase.
func NewGroup(phase service.Phase) *Group {
	return &Group{
		phase:   phase,
		pool:    pool.New(),
		started: time.Now(),
	}
}

// Go launches fn for the named service and handler. ctx should already be
// scoped to the service; Group adds the phase and handler to its log scope.
func (g *Group) Go(ctx context.Context, svc, handler string, fn func(ctx context.Context) error) {
	g.mu.Lock()
	idx := g.count
	g.count++
	g.errs = append(g.errs, nil)
	g.mu.Unlock()

	taskCtx := logger.WithContext(ctx, logger.FromContext(ctx).WithHandler(loggerName(g.phase), g.phase.String(), handler))

	g.pool.Go(func() {
		if t := TrackerFromContext(ctx); t != nil {
			defer t.add(describe(fn))()
		}

		if err := call(taskCtx, fn); err != nil {
			g.mu.Lock()
			g.errs[idx] = &service.HandlerError{Service: svc, Phase: g.phase, Handler: handler, Err: err}
			g.mu.Unlock()
		}
	})
}

// Len returns the number of launched tasks.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Wait blocks until every task has returned and gives back their errors
// in launch order. Calling Wait again returns the same errors.
func (g *Group) Wait() []*service.HandlerError {
	g.waitOnce.Do(func() {
		g.pool.Wait()

		g.mu.Lock()
		for _, err := range g.errs {
			if err != nil {
				g.results = append(g.results, err)
			}
		}
		g.mu.Unlock()
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.results
}

// Elapsed returns the time since the group was created.
func (g *Group) Elapsed() time.Duration {
	return time.Since(g.started)
}

// call runs fn and turns a panic into a *service.PanicError.
func call(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &service.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

func loggerName(phase service.Phase) string {
	switch phase {
	case service.PhaseInvoker:
		return "lifecycled.setup"
	case service.PhaseHandler:
		return "lifecycled.invoker"
	case service.PhaseRegister, service.PhaseDeregister:
		return "lifecycled.discovery"
	default:
		return "lifecycled.lifecycle.handler"
	}
}
