package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/lifecycled/pkg/launcher"
	"github.com/marmos91/lifecycled/pkg/service"
)

func start(t *testing.T, services map[string]any, modules ...service.Module) (*launcher.Launcher, <-chan int) {
	t.Helper()
	l := launcher.New(launcher.Options{Modules: modules, Services: services})
	done := make(chan int, 1)
	go func() { done <- l.Run(context.Background()) }()
	return l, done
}

func exitCode(t *testing.T, done <-chan int) int {
	t.Helper()
	select {
	case code := <-done:
		return code
	case <-time.After(5 * time.Second):
		require.FailNow(t, "launcher did not exit")
		return -1
	}
}

func TestCatalog(t *testing.T) {
	var keys []string
	for _, m := range Catalog().Modules() {
		keys = append(keys, m.Key())
	}
	assert.Equal(t, []string{"noop", "orders", "scheduler"}, keys)
}

func TestOrdersLifecycle(t *testing.T) {
	l, done := start(t, map[string]any{"interval": "5ms", "queue": "priority"}, Orders())

	require.Eventually(t, func() bool { return l.Snapshot().Ready }, 5*time.Second, 5*time.Millisecond)

	instances := l.Registry().Instances()
	require.Len(t, instances, 1)
	assert.Equal(t, "demo-orders-order-processor", instances[0].Name())

	p := instances[0].Value.(*OrderProcessor)
	assert.Equal(t, "priority", p.Queue)
	assert.True(t, p.Connected())
	require.Eventually(t, func() bool { return p.Processed() >= 2 }, 5*time.Second, 5*time.Millisecond)

	l.Stop()
	assert.Equal(t, 0, exitCode(t, done))
	assert.False(t, p.Connected())
}

func TestOrdersSetupFailure(t *testing.T) {
	l, done := start(t, map[string]any{"fail_setup": true}, Orders())

	assert.Equal(t, 1, exitCode(t, done))
	var handlerErr *service.HandlerError
	require.ErrorAs(t, l.Status().Err(), &handlerErr)
	assert.Equal(t, service.PhaseSetup, handlerErr.Phase)
	assert.EqualError(t, handlerErr.Err, "queue broker unreachable")
}

func TestSchedulerLifecycle(t *testing.T) {
	l, done := start(t, map[string]any{"schedule": "@every 1h"}, Scheduler())

	require.Eventually(t, func() bool { return l.Snapshot().Ready }, 5*time.Second, 5*time.Millisecond)
	r := l.Registry().Instances()[0].Value.(*Reporter)
	assert.Equal(t, "@every 1h", r.Spec)

	l.Stop()
	assert.Equal(t, 0, exitCode(t, done))
}

func TestSchedulerInvalidSpec(t *testing.T) {
	_, done := start(t, map[string]any{"schedule": "not a schedule"}, Scheduler())
	assert.Equal(t, 1, exitCode(t, done))
}

func TestNoopHasNoHandlers(t *testing.T) {
	l, done := start(t, nil, Noop())

	assert.Equal(t, 1, exitCode(t, done))
	var noHandlers *service.NoHandlersError
	assert.ErrorAs(t, l.Status().Err(), &noHandlers)
}
