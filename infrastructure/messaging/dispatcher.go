// Package messaging hands domain events to subscribers outside the command
// path.
package messaging

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"kaku/domain/events"
)

// ErrDispatcherClosed is returned by Publish after Close
var ErrDispatcherClosed = errors.New("event dispatcher closed")

// ErrQueueFull is returned when the queue has no room. Events are dropped
// rather than blocking the command that produced them.
var ErrQueueFull = errors.New("event queue full")

// Handler consumes one event
type Handler func(ctx context.Context, event events.DomainEvent) error

// Dispatcher is the in-process event publisher. Publish enqueues on a
// buffered channel and a single worker delivers events to every subscriber
// in publication order.
type Dispatcher struct {
	queue    chan events.DomainEvent
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers []Handler
	closed   bool
	done     chan struct{}
	once     sync.Once
}

// NewDispatcher creates a dispatcher with room for buffer pending events and
// starts its worker.
func NewDispatcher(buffer int, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		queue:  make(chan events.DomainEvent, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Subscribe adds a handler for every event
func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Publish enqueues events without waiting for delivery
func (d *Dispatcher) Publish(_ context.Context, evts ...events.DomainEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	for _, e := range evts {
		select {
		case d.queue <- e:
		default:
			d.logger.Warn("Event queue full, dropping event",
				zap.String("eventType", e.GetEventType()),
				zap.String("aggregateID", e.GetAggregateID()),
			)
			return ErrQueueFull
		}
	}
	return nil
}

// Close stops accepting events and waits until the queued ones are delivered
// or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		d.mu.RLock()
		handlers := d.handlers
		d.mu.RUnlock()

		for _, h := range handlers {
			if err := h(context.Background(), e); err != nil {
				d.logger.Error("Event handler failed",
					zap.String("eventType", e.GetEventType()),
					zap.String("aggregateID", e.GetAggregateID()),
					zap.Error(err),
				)
			}
		}
	}
}

// LogHandler logs every event at debug level
func LogHandler(logger *zap.Logger) Handler {
	return func(_ context.Context, e events.DomainEvent) error {
		logger.Debug("Domain event",
			zap.String("eventType", e.GetEventType()),
			zap.String("aggregateID", e.GetAggregateID()),
			zap.Time("timestamp", e.GetTimestamp()),
		)
		return nil
	}
}

// Forward relays events to another publisher, such as EventBridge
func Forward(p interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}) Handler {
	return func(ctx context.Context, e events.DomainEvent) error {
		return p.Publish(ctx, e)
	}
}
