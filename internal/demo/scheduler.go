package demo

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/service"
)

// Scheduler returns a module with one cron-driven service.
func Scheduler() service.Module {
	return service.Module{
		Path: "demo.scheduler",
		File: "internal/demo/scheduler.go",
		Definitions: []service.Definition{
			service.Define("Reporter", NewReporter,
				service.WithInvokers(
					service.NewInvoker("Schedule", 1, (*Reporter).Schedule),
				),
			),
		},
	}
}

// Reporter runs a job on a cron schedule.
type Reporter struct {
	// Spec accepts standard cron expressions and descriptors such
	// as "@every 5s".
	Spec string `mapstructure:"schedule"`

	cron *cron.Cron
	runs atomic.Int64
}

// NewReporter creates a Reporter running every ten seconds.
func NewReporter() (*Reporter, error) {
	return &Reporter{Spec: "@every 10s"}, nil
}

// Schedule parses the schedule and registers the job. The returned handler
// starts the cron runner.
func (r *Reporter) Schedule(ctx context.Context) (service.Handler, error) {
	c := cron.New(cron.WithLogger(cronLogger{}), cron.WithChain(cron.Recover(cronLogger{})))
	if _, err := c.AddFunc(r.Spec, r.report); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", r.Spec, err)
	}
	r.cron = c

	return func(ctx context.Context) error {
		c.Start()
		logger.InfoCtx(ctx, "schedule enabled", "schedule", r.Spec)
		return nil
	}, nil
}

func (r *Reporter) report() {
	n := r.runs.Add(1)
	logger.Info("report generated", logger.KeyCount, n)
}

// StopService stops the runner and waits for a running job to finish.
func (r *Reporter) StopService(ctx context.Context) error {
	if r.cron == nil {
		return nil
	}
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runs returns how many times the job ran.
func (r *Reporter) Runs() int64 { return r.runs.Load() }

// cronLogger sends cron's own logs to the package logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: "+msg, append(keysAndValues, logger.KeyError, err)...)
}
