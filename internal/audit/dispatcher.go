package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const DefaultQueueSize = 256

// Dispatcher queues entries for a background worker that feeds the sink.
// Record never blocks: when the queue is full the entry is dropped and
// counted. Close drains the queue and flushes the sink.
type Dispatcher struct {
	sink     Sink
	logger   *slog.Logger
	dropped  prometheus.Counter
	failures prometheus.Counter

	mu     sync.RWMutex
	closed bool
	queue  chan Entry
	done   chan struct{}
}

type DispatcherOption func(*Dispatcher)

// WithCounters wires drop and failure counters. Either may be nil.
func WithCounters(dropped, failures prometheus.Counter) DispatcherOption {
	return func(d *Dispatcher) {
		d.dropped = dropped
		d.failures = failures
	}
}

func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

func NewDispatcher(sink Sink, queueSize int, opts ...DispatcherOption) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		sink:   sink,
		logger: slog.Default(),
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	ctx := context.Background()
	for e := range d.queue {
		if err := d.sink.Record(ctx, e); err != nil {
			if d.failures != nil {
				d.failures.Inc()
			}
			d.logger.Warn("audit sink failed",
				slog.String("entity_type", string(e.EntityType)),
				slog.String("entity_id", e.EntityID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Record enqueues e. It always returns nil so callers can treat the
// dispatcher as a Sink.
func (d *Dispatcher) Record(_ context.Context, e Entry) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(e, "dispatcher closed")
		return nil
	}
	select {
	case d.queue <- e:
	default:
		d.drop(e, "queue full")
	}
	return nil
}

func (d *Dispatcher) drop(e Entry, reason string) {
	if d.dropped != nil {
		d.dropped.Inc()
	}
	d.logger.Warn("audit entry dropped",
		slog.String("reason", reason),
		slog.String("entity_type", string(e.EntityType)),
		slog.String("entity_id", e.EntityID),
	)
}

// Close stops accepting entries, waits for the worker to drain the queue
// or for ctx to end, then flushes a buffering sink.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if f, ok := d.sink.(Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}
