// Package events provides the in-process asynchronous event bus. One
// background goroutine drains a strictly FIFO queue and invokes handlers
// sequentially, so handler execution is fully decoupled from the command
// that produced the event: handlers never run inline with a command and
// may safely call back into the engine.
package events

import (
	"sync"

	"go.uber.org/zap"

	"mnemonic-backend/internal/domain/shared"
	"mnemonic-backend/internal/observability"
)

// Handler processes a dispatched domain event. A handler that panics is
// caught and isolated; it cannot stop dispatch of later handlers for the
// same event or of subsequent events.
type Handler func(event shared.DomainEvent)

// Statistics reports the live state of the bus.
type Statistics struct {
	HandlerCount int  `json:"total_handlers"`
	QueueDepth   int  `json:"queue_size"`
	Running      bool `json:"is_running"`
}

// Bus is the asynchronous publish/subscribe dispatcher. Publish never
// blocks the caller: the queue is unbounded, which trades bounded publish
// latency for unbounded memory growth under a persistently slow consumer.
type Bus struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []shared.DomainEvent
	handlers map[string][]Handler
	running  bool
	done     chan struct{}

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewBus creates a stopped event bus.
func NewBus(logger *zap.Logger, metrics *observability.Metrics) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
		metrics:  metrics,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Subscribe registers a handler for an event type. Multiple handlers per
// type are invoked in registration order.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish enqueues the event and returns immediately, whether or not the
// bus has been started.
func (b *Bus) Publish(event shared.DomainEvent) {
	b.mu.Lock()
	b.queue = append(b.queue, event)
	depth := len(b.queue)
	b.mu.Unlock()

	b.metrics.EventPublished(event.EventType())
	b.metrics.SetQueueDepth(depth)
	b.cond.Signal()
}

// Start spawns the dispatch loop. Calling Start on a running bus is a
// no-op.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true
	b.done = make(chan struct{})
	go b.dispatchLoop(b.done)
	b.logger.Info("event bus started")
}

// Stop signals the dispatch loop, wakes it, and waits for it to exit.
// The remaining queue is not drained: events still queued at shutdown are
// dropped. Calling Stop on a stopped bus is a no-op.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	done := b.done
	dropped := len(b.queue)
	b.mu.Unlock()

	b.cond.Broadcast()
	<-done

	if dropped > 0 {
		b.logger.Warn("event bus stopped with undelivered events",
			zap.Int("dropped", dropped),
		)
	} else {
		b.logger.Info("event bus stopped")
	}
}

// Statistics returns the handler count, current queue depth and running
// flag.
func (b *Bus) Statistics() Statistics {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, hs := range b.handlers {
		count += len(hs)
	}
	return Statistics{
		HandlerCount: count,
		QueueDepth:   len(b.queue),
		Running:      b.running,
	}
}

// dispatchLoop processes one event at a time in strict FIFO order: all
// handlers finish with an event before the next one is dequeued.
func (b *Bus) dispatchLoop(done chan struct{}) {
	defer close(done)

	for {
		b.mu.Lock()
		for len(b.queue) == 0 && b.running {
			b.cond.Wait()
		}
		if !b.running {
			b.mu.Unlock()
			return
		}
		event := b.queue[0]
		b.queue = b.queue[1:]
		depth := len(b.queue)
		handlers := make([]Handler, len(b.handlers[event.EventType()]))
		copy(handlers, b.handlers[event.EventType()])
		b.mu.Unlock()

		b.metrics.SetQueueDepth(depth)
		for _, handler := range handlers {
			b.invoke(handler, event)
		}
		b.metrics.EventDispatched(event.EventType())
	}
}

// invoke runs one handler with panic isolation.
func (b *Bus) invoke(handler Handler, event shared.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.HandlerFault(event.EventType())
			b.logger.Error("event handler panicked",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID()),
				zap.Any("panic", r),
			)
		}
	}()
	handler(event)
}
