// Package mq wires the event queue, the worker pool and a publisher into a best-effort dispatcher.
package mq

import (
	"context"
	"errors"

	"github.com/okian/pulse/internal/adapters/mq/queue"
	"github.com/okian/pulse/internal/adapters/mq/worker"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// Dispatcher accepts events on the request path and publishes them in the background.
// Emit never blocks; when the queue is full the event is dropped.
type Dispatcher struct {
	queue *queue.InMemoryQueue
	pool  *worker.Pool
	log   logger.Logger
}

// Option configures a Dispatcher.
type Option func(*dispatcherConfig)

type dispatcherConfig struct {
	capacity int
	workers  int
	log      logger.Logger
}

// WithCapacity sets the queue capacity.
func WithCapacity(n int) Option {
	return func(c *dispatcherConfig) { c.capacity = n }
}

// WithWorkers sets the number of publishing workers.
func WithWorkers(n int) Option {
	return func(c *dispatcherConfig) { c.workers = n }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l logger.Logger) Option {
	return func(c *dispatcherConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewDispatcher builds a dispatcher publishing through pub. Call Start before Emit.
func NewDispatcher(pub worker.Publisher, opts ...Option) *Dispatcher {
	cfg := dispatcherConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Named("dispatcher")
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.capacity))
	return &Dispatcher{
		queue: q,
		pool:  worker.NewPool(cfg.workers, q, pub, cfg.log.Named("workers")),
		log:   cfg.log,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

// Emit queues e for publishing.
func (d *Dispatcher) Emit(ctx context.Context, e model.Event) { //nolint:gocritic // hugeParam: events are values
	err := d.queue.Enqueue(ctx, e)
	if err == nil {
		return
	}
	if errors.Is(err, queue.ErrQueueFull) {
		metrics.RecordQueueDropped()
	}
	d.log.Warn(ctx, "event dropped",
		logger.String("type", string(e.Type)),
		logger.String("round_id", e.RoundID),
		logger.Error(err),
	)
}

// Shutdown stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	return d.pool.Shutdown(ctx)
}
