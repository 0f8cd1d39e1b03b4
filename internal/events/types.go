// internal/events/types.go
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType represents the type of event.
type EventType string

const (
	// Monitoring lifecycle
	MonitoringStarted EventType = "monitoring.started"
	MonitoringStopped EventType = "monitoring.stopped"

	// Per-cycle updates
	PositionUpdated  EventType = "position.updated"
	PriceUnavailable EventType = "price.unavailable"

	// Exit rules
	TakeProfitFired   EventType = "exit.take_profit"
	TrailingStopFired EventType = "exit.trailing_stop"
	SellFailed        EventType = "exit.sell_failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event type with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// MonitoringStartedEvent is emitted when a position enters monitoring.
type MonitoringStartedEvent struct {
	BaseEvent
	TokenMint  string
	Label      string
	EntryPrice decimal.Decimal
	Quantity   decimal.Decimal
}

// MonitoringStoppedEvent is emitted when a monitor loop exits.
type MonitoringStoppedEvent struct {
	BaseEvent
	TokenMint string
	Reason    string // "closed", "cancelled"
	Remaining decimal.Decimal
}

// PositionUpdatedEvent carries the snapshot after each evaluated cycle.
type PositionUpdatedEvent struct {
	BaseEvent
	TokenMint    string
	Status       string
	CurrentPrice decimal.Decimal
	EntryPrice   decimal.Decimal
	PeakPrice    decimal.Decimal
	PnLPercent   decimal.Decimal
	Remaining    decimal.Decimal
}

// PriceUnavailableEvent is emitted when a cycle is skipped for lack of a price.
type PriceUnavailableEvent struct {
	BaseEvent
	TokenMint string
	Error     error
}

// ExitEvent is emitted for every sell attempt made by an exit rule.
type ExitEvent struct {
	BaseEvent
	TokenMint  string
	Label      string
	Rule       string // "take_profit" or "trailing_stop"
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	EntryPrice decimal.Decimal
	PeakPrice  decimal.Decimal
	Signature  string
	Error      error // set on SellFailed
}
