package events

import (
	"context"
	"sync"

	"bubbler/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange EventType = "balance_change"
	EventTypeBetSettled    EventType = "bet_settled"
	EventTypeRaceFinished  EventType = "race_finished"
	EventTypeDropCharged   EventType = "drop_charged"
	EventTypeHouseRefilled EventType = "house_refilled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	Identity        string
	OldBalance      int64
	NewBalance      int64
	TransactionType models.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// BetSettledEvent represents a clean bet that was resolved
type BetSettledEvent struct {
	Identity string
	Wager    int64
	Won      bool
	Payout   int64
}

func (e BetSettledEvent) Type() EventType {
	return EventTypeBetSettled
}

// RaceFinishedEvent represents a race that ran to completion
type RaceFinishedEvent struct {
	Winner     string
	Token      string
	Wager      int64
	Payout     int64
	Bonus      int64
	RacerCount int
}

func (e RaceFinishedEvent) Type() EventType {
	return EventTypeRaceFinished
}

// DropChargedEvent represents bubbles accumulating on the floor
type DropChargedEvent struct {
	Count   int64
	Pending int64
}

func (e DropChargedEvent) Type() EventType {
	return EventTypeDropCharged
}

// HouseRefilledEvent represents the house account resetting to its floor
type HouseRefilledEvent struct {
	Injected   int64
	NewBalance int64
}

func (e HouseRefilledEvent) Type() EventType {
	return EventTypeHouseRefilled
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// AsyncPublisher adapts the bus for fire-and-forget publication from
// code that does not carry an emission context.
type AsyncPublisher struct {
	bus *Bus
}

func NewAsyncPublisher(bus *Bus) *AsyncPublisher {
	return &AsyncPublisher{bus: bus}
}

func (p *AsyncPublisher) Publish(event Event) {
	// Events outlive the operation that produced them
	p.bus.Emit(context.Background(), event)
}
