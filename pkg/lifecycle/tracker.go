package lifecycle

import (
	"context"
	"reflect"
	"runtime"
	"sort"
	"sync"
	"time"
)

// TaskInfo describes a tracked goroutine.
type TaskInfo struct {
	ID       uint64
	Function string
	File     string
	Line     int
	Started  time.Time
}

// Tracker keeps a record of goroutines started through it so that tasks
// still pending after shutdown can be reported.
type Tracker struct {
	mu    sync.Mutex
	next  uint64
	tasks map[uint64]TaskInfo
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{tasks: make(map[uint64]TaskInfo)}
}

type trackerKey struct{}

// WithTracker attaches t to ctx. Go and Signal.Wait record themselves on
// the tracker found in their context.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the Tracker attached to ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

// Go runs fn in a new goroutine. When ctx carries a Tracker the goroutine
// is recorded until fn returns. Services use it for background work that
// must be visible to the shutdown diagnostics.
func Go(ctx context.Context, fn func(ctx context.Context)) {
	if t := TrackerFromContext(ctx); t != nil {
		t.Go(ctx, fn)
		return
	}
	go fn(ctx)
}

// Go runs fn in a tracked goroutine.
func (t *Tracker) Go(ctx context.Context, fn func(ctx context.Context)) {
	done := t.add(describe(fn))
	go func() {
		defer done()
		fn(ctx)
	}()
}

// Enter records the calling function as running until the returned
// function is called:
//
//	defer tracker.Enter()()
func (t *Tracker) Enter() func() {
	info := TaskInfo{Function: "unknown"}
	if pc, file, line, ok := runtime.Caller(1); ok {
		info.File, info.Line = file, line
		if f := runtime.FuncForPC(pc); f != nil {
			info.Function = f.Name()
		}
	}
	return t.add(info)
}

func (t *Tracker) add(info TaskInfo) func() {
	t.mu.Lock()
	t.next++
	info.ID = t.next
	info.Started = time.Now()
	if t.tasks == nil {
		t.tasks = make(map[uint64]TaskInfo)
	}
	t.tasks[info.ID] = info
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.tasks, info.ID)
			t.mu.Unlock()
		})
	}
}

// Pending returns the tasks that have not finished, oldest first.
func (t *Tracker) Pending() []TaskInfo {
	t.mu.Lock()
	out := make([]TaskInfo, 0, len(t.tasks))
	for _, info := range t.tasks {
		out = append(out, info)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func describe(fn any) TaskInfo {
	info := TaskInfo{Function: "unknown"}
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return info
	}
	info.Function = f.Name()
	info.File, info.Line = f.FileLine(f.Entry())
	return info
}
