package launcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/lifecycled/pkg/lifecycle"
	"github.com/marmos91/lifecycled/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// greeter is ready-only and records the greeting it was configured with.
type greeter struct {
	Greeting string `mapstructure:"greeting"`
	seen     *atomic.Value
}

func (g *greeter) StartedService(context.Context) error {
	g.seen.Store(g.Greeting)
	return nil
}

// flaky fails its setup while fail is set.
type flaky struct{ fail *atomic.Bool }

func (f *flaky) StartService(context.Context) error {
	if f.fail.Load() {
		return errors.New("dependency down")
	}
	return nil
}

func greeterModule(seen *atomic.Value) service.Module {
	return service.Module{Path: "demo.greeter", Definitions: []service.Definition{
		service.Define("Greeter", func() (*greeter, error) { return &greeter{Greeting: "hello", seen: seen}, nil }),
	}}
}

func runLauncher(l *Launcher) <-chan int {
	done := make(chan int, 1)
	go func() { done <- l.Run(context.Background()) }()
	return done
}

func waitReady(t *testing.T, l *Launcher) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = l.Snapshot()
		return snap.Ready
	}, 5*time.Second, 5*time.Millisecond)
	return snap
}

func waitExit(t *testing.T, done <-chan int) int {
	t.Helper()
	select {
	case code := <-done:
		return code
	case <-time.After(5 * time.Second):
		require.FailNow(t, "launcher did not exit")
		return -1
	}
}

func TestLauncherRunsModulesUntilStop(t *testing.T) {
	seen := &atomic.Value{}
	other := &atomic.Value{}
	l := New(Options{
		Modules: []service.Module{
			greeterModule(seen),
			{Path: "demo.other", Definitions: []service.Definition{
				service.Define("Greeter", func() (*greeter, error) { return &greeter{seen: other}, nil }),
			}},
		},
		Services: map[string]any{"greeting": "hi"},
	})

	done := runLauncher(l)
	snap := waitReady(t, l)

	assert.Equal(t, "hi", seen.Load())
	require.Len(t, snap.Modules, 2)
	assert.Equal(t, lifecycle.StateRunning, snap.Modules[0].State)
	require.Len(t, snap.Services, 2)
	assert.Equal(t, "demo-greeter-greeter", snap.Services[0].Name)
	assert.Equal(t, "demo-other-greeter", snap.Services[1].Name)
	assert.True(t, snap.Services[0].Started)

	l.Stop()
	assert.Equal(t, 0, waitExit(t, done))
	l.Stop()
}

func TestLauncherExitCodeOnFailure(t *testing.T) {
	fail := &atomic.Bool{}
	fail.Store(true)
	l := New(Options{
		Modules: []service.Module{{Path: "demo.flaky", Definitions: []service.Definition{
			service.Define("Flaky", func() (*flaky, error) { return &flaky{fail: fail}, nil }),
		}}},
	})

	assert.Equal(t, 1, waitExit(t, runLauncher(l)), "a failing first run is not retried")
}

func TestLauncherRestartReloadsConfiguration(t *testing.T) {
	seen := &atomic.Value{}
	reloads := atomic.Int32{}
	l := New(Options{
		Modules:  []service.Module{greeterModule(seen)},
		Services: map[string]any{"greeting": "v1"},
		Reload: func(context.Context) (map[string]any, error) {
			reloads.Add(1)
			return map[string]any{"greeting": "v2"}, nil
		},
	})

	done := runLauncher(l)
	waitReady(t, l)
	assert.Equal(t, "v1", seen.Load())

	require.NoError(t, l.Restart(context.Background()))
	require.Eventually(t, func() bool { return seen.Load() == "v2" }, 5*time.Second, 5*time.Millisecond)
	snap := waitReady(t, l)
	assert.Equal(t, 1, snap.Restarts)
	assert.Equal(t, int32(1), reloads.Load())
	assert.Len(t, snap.Services, 1, "the registry is cleared between runs")

	l.Stop()
	assert.Equal(t, 0, waitExit(t, done))
}

func TestLauncherRestartFailureKeepsRunning(t *testing.T) {
	seen := &atomic.Value{}
	l := New(Options{
		Modules: []service.Module{greeterModule(seen)},
		Reload: func(context.Context) (map[string]any, error) {
			return nil, errors.New("invalid yaml")
		},
	})

	done := runLauncher(l)
	waitReady(t, l)

	assert.EqualError(t, l.Restart(context.Background()), "invalid yaml")
	assert.True(t, l.Snapshot().Ready)
	assert.Zero(t, l.Snapshot().Restarts)

	l.Stop()
	assert.Equal(t, 0, waitExit(t, done))
}

func TestLauncherRetriesFailedRestart(t *testing.T) {
	fail := &atomic.Bool{}
	l := New(Options{
		Modules: []service.Module{{Path: "demo.flaky", Definitions: []service.Definition{
			service.Define("Flaky", func() (*flaky, error) { return &flaky{fail: fail}, nil }),
		}}},
		RestartDelay: 20 * time.Millisecond,
	})

	done := runLauncher(l)
	waitReady(t, l)

	fail.Store(true)
	require.NoError(t, l.Restart(context.Background()))

	// The restarted run fails and is retried until the dependency is back.
	require.Eventually(t, func() bool { return l.Snapshot().Restarts >= 2 }, 5*time.Second, 5*time.Millisecond)
	fail.Store(false)
	waitReady(t, l)
	assert.Equal(t, 0, l.Status().Code())

	l.Stop()
	assert.Equal(t, 0, waitExit(t, done))
}

func TestLauncherStopBeforeRun(t *testing.T) {
	l := New(Options{Modules: []service.Module{greeterModule(&atomic.Value{})}})
	l.Stop()
	assert.Equal(t, 0, waitExit(t, runLauncher(l)))
}

func TestLauncherContextCancellation(t *testing.T) {
	l := New(Options{Modules: []service.Module{greeterModule(&atomic.Value{})}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- l.Run(ctx) }()

	waitReady(t, l)
	cancel()
	assert.Equal(t, 0, waitExit(t, done))
}
