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

var (
	ErrBusClosed = errors.New("event bus is shutting down")
	ErrBusFull   = errors.New("event channel full")
)

// Publisher is the narrow side of the bus handed to producers.
type Publisher interface {
	Publish(event Event) error
}

// Bus is an in-memory event bus implementation.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[EventType]map[string]Handler
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	eventChan  chan Event
	bufferSize int
}

// NewBus creates a new event bus and starts its dispatch goroutine.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
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
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for one or more event types.
func (b *Bus) Subscribe(handler Handler, types ...EventType) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	for _, eventType := range types {
		if b.handlers[eventType] == nil {
			b.handlers[eventType] = make(map[string]Handler)
		}
		b.handlers[eventType][id] = handler
	}

	b.logger.Debug("Handler subscribed",
		zap.Int("event_types", len(types)),
		zap.String("subscription_id", id))

	return &subscription{
		id:       id,
		eventBus: b,
		types:    types,
	}
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(fn func(context.Context, Event) error, types ...EventType) Subscription {
	return b.Subscribe(HandlerFunc(fn), types...)
}

// Publish queues an event for asynchronous delivery. It never blocks.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	default:
	}

	select {
	case b.eventChan <- event:
		return nil
	default:
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBusFull
	}
}

// PublishSync delivers an event to all registered handlers on the caller's goroutine.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.Type()]
	handlersCopy := make(map[string]Handler, len(handlers))
	for id, h := range handlers {
		handlersCopy[id] = h
	}
	b.mu.RUnlock()

	var errs []error
	for id, handler := range handlersCopy {
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

// processEvents dispatches queued events in arrival order.
func (b *Bus) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			// Drain what is already queued so the journal sees the final exits.
			for {
				select {
				case event := <-b.eventChan:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.eventChan:
			_ = b.PublishSync(b.ctx, event)
		}
	}
}

// unsubscribe removes a handler subscription.
func (b *Bus) unsubscribe(id string, types []EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range types {
		if handlers, ok := b.handlers[eventType]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.handlers, eventType)
			}
		}
	}

	b.logger.Debug("Handler unsubscribed", zap.String("subscription_id", id))
}

// Shutdown stops accepting events, drains the queue and waits for the dispatcher.
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

// Pending returns how many events wait for dispatch.
func (b *Bus) Pending() int {
	return len(b.eventChan)
}
