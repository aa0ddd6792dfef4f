package demo

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/lifecycle"
	"github.com/marmos91/lifecycled/pkg/service"
)

// Orders returns a module with one order-processing service.
func Orders() service.Module {
	return service.Module{
		Path: "demo.orders",
		File: "internal/demo/orders.go",
		Definitions: []service.Definition{
			service.Define("OrderProcessor", NewOrderProcessor,
				service.WithInvokers(
					service.NewInvoker("Consume", 1, (*OrderProcessor).Consume),
				),
			),
		},
	}
}

// OrderProcessor pretends to consume orders from a queue.
type OrderProcessor struct {
	Queue    string        `mapstructure:"queue"`
	Interval time.Duration `mapstructure:"interval"`

	// FailSetup makes StartService fail, to show an aborted start.
	FailSetup bool `mapstructure:"fail_setup"`

	connected atomic.Bool
	processed atomic.Int64
}

// NewOrderProcessor creates an OrderProcessor with its defaults.
func NewOrderProcessor() (*OrderProcessor, error) {
	return &OrderProcessor{Queue: "orders", Interval: 2 * time.Second}, nil
}

func (p *OrderProcessor) StartService(ctx context.Context) error {
	if p.FailSetup {
		return errors.New("queue broker unreachable")
	}
	p.connected.Store(true)
	logger.InfoCtx(ctx, "connected to queue", "queue", p.Queue)
	return nil
}

// Consume subscribes to the queue. The returned handler starts the
// consumer loop, which runs until the service is torn down.
func (p *OrderProcessor) Consume(ctx context.Context) (service.Handler, error) {
	if p.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	logger.DebugCtx(ctx, "subscribed", "queue", p.Queue)

	return func(ctx context.Context) error {
		lifecycle.Go(ctx, p.consume)
		return nil
	}, nil
}

func (p *OrderProcessor) consume(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := p.processed.Add(1)
			logger.InfoCtx(ctx, "processed order", "queue", p.Queue, logger.KeyCount, n)
		}
	}
}

func (p *OrderProcessor) StartedService(ctx context.Context) error {
	logger.InfoCtx(ctx, "accepting orders", "queue", p.Queue)
	return nil
}

func (p *OrderProcessor) StoppingService(ctx context.Context) error {
	logger.InfoCtx(ctx, "draining queue", "queue", p.Queue)
	return nil
}

func (p *OrderProcessor) StopService(ctx context.Context) error {
	p.connected.Store(false)
	logger.InfoCtx(ctx, "disconnected from queue", "queue", p.Queue, logger.KeyCount, p.processed.Load())
	return nil
}

// Processed returns how many orders were handled.
func (p *OrderProcessor) Processed() int64 { return p.processed.Load() }

// Connected reports whether setup ran and teardown has not.
func (p *OrderProcessor) Connected() bool { return p.connected.Load() }
