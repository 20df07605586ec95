// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllEvents subscribes a handler to every event type.
const AllEvents EventType = "*"

var (
	ErrBusClosed = errors.New("event bus is shutting down")
	ErrBusFull   = errors.New("event channel full")
)

// Publisher is the narrow view producers depend on.
type Publisher interface {
	Publish(event Event) error
}

// Stats is a point-in-time snapshot of the bus.
type Stats struct {
	BufferSize      int
	Pending         int
	Published       uint64
	Dropped         uint64
	HandlersPerType map[EventType]int
}

// Bus is an in-memory event bus. Events published asynchronously are
// dispatched by a single goroutine, so handlers observe them in publish order.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[EventType]map[string]Handler
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	eventChan  chan Event
	bufferSize int

	statsMu   sync.Mutex
	published uint64
	dropped   uint64
}

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	bus := &Bus{
		handlers:   make(map[EventType]map[string]Handler),
		logger:     logger.Named("event_bus"),
		ctx:        ctx,
		cancel:     cancel,
		eventChan:  make(chan Event, bufferSize),
		bufferSize: bufferSize,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Subscribe registers a handler for a specific event type, or AllEvents.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{
		id:       id,
		eventBus: b,
		typ:      eventType,
	}
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues an event for ordered asynchronous delivery. A full buffer
// drops the event rather than blocking the producer.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	default:
	}

	select {
	case b.eventChan <- event:
		b.count(false)
		return nil
	default:
		b.count(true)
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBusFull
	}
}

// PublishSync delivers an event to all matching handlers on the caller's goroutine.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	handlers := b.snapshot(event.Type())
	if len(handlers) == 0 {
		return nil
	}

	var errs []error
	for id, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("handlers failed: %w", errors.Join(errs...))
	}
	return nil
}

// snapshot copies the handlers so none are called under the lock.
func (b *Bus) snapshot(t EventType) map[string]Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Handler, len(b.handlers[t])+len(b.handlers[AllEvents]))
	for id, h := range b.handlers[t] {
		out[id] = h
	}
	for id, h := range b.handlers[AllEvents] {
		out[id] = h
	}
	return out
}

func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			// Drain remaining events
			for {
				select {
				case event := <-b.eventChan:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.eventChan:
			if err := b.PublishSync(b.ctx, event); err != nil {
				b.logger.Error("Failed to process event",
					zap.String("event_type", string(event.Type())),
					zap.Error(err))
			}
		}
	}
}

func (b *Bus) count(dropped bool) {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	if dropped {
		b.dropped++
	} else {
		b.published++
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown stops accepting events, delivers what is queued and waits for the
// dispatcher or ctx, whichever comes first.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}

// Stats returns statistics about the event bus.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	counts := make(map[EventType]int, len(b.handlers))
	for t, hs := range b.handlers {
		counts[t] = len(hs)
	}
	b.mu.RUnlock()

	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return Stats{
		BufferSize:      b.bufferSize,
		Pending:         len(b.eventChan),
		Published:       b.published,
		Dropped:         b.dropped,
		HandlersPerType: counts,
	}
}

// Nop discards events. Handy for engines run without observers.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
