// internal/events/handler.go
package events

import (
	"context"
)

// Handler processes events. Handlers run on the bus dispatcher and should return quickly.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as event handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	types    []EventType
	once     bool
}

// Unsubscribe removes this subscription from the event bus. Calling it twice is a no-op.
func (s *subscription) Unsubscribe() {
	if s.once {
		return
	}
	s.once = true
	s.eventBus.unsubscribe(s.id, s.types)
}
