package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"bubbler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	t.Run("delivers to every subscriber of the type", func(t *testing.T) {
		bus := NewBus()

		var mu sync.Mutex
		var received []Event
		done := make(chan struct{}, 2)
		handler := func(ctx context.Context, event Event) {
			mu.Lock()
			received = append(received, event)
			mu.Unlock()
			done <- struct{}{}
		}
		bus.Subscribe(EventTypeBalanceChange, handler)
		bus.Subscribe(EventTypeBalanceChange, handler)

		bus.Emit(context.Background(), BalanceChangeEvent{
			Identity:        "alice",
			OldBalance:      0,
			NewBalance:      100,
			TransactionType: models.TransactionTypeInitial,
			ChangeAmount:    100,
		})

		for i := 0; i < 2; i++ {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("handler was not invoked")
			}
		}

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, received, 2)
		event := received[0].(BalanceChangeEvent)
		assert.Equal(t, "alice", event.Identity)
		assert.Equal(t, int64(100), event.ChangeAmount)
	})

	t.Run("other types are not delivered", func(t *testing.T) {
		bus := NewBus()

		invoked := make(chan struct{}, 1)
		bus.Subscribe(EventTypeRaceFinished, func(ctx context.Context, event Event) {
			invoked <- struct{}{}
		})

		bus.Emit(context.Background(), BetSettledEvent{Identity: "alice", Won: true})

		select {
		case <-invoked:
			t.Fatal("handler for a different event type was invoked")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("a panicking handler does not stop the others", func(t *testing.T) {
		bus := NewBus()

		done := make(chan struct{}, 1)
		bus.Subscribe(EventTypeHouseRefilled, func(ctx context.Context, event Event) {
			panic("boom")
		})
		bus.Subscribe(EventTypeHouseRefilled, func(ctx context.Context, event Event) {
			done <- struct{}{}
		})

		bus.Emit(context.Background(), HouseRefilledEvent{Injected: 500, NewBalance: 500})

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("surviving handler was not invoked")
		}
	})
}

func TestAsyncPublisher(t *testing.T) {
	bus := NewBus()
	done := make(chan Event, 1)
	bus.Subscribe(EventTypeDropCharged, func(ctx context.Context, event Event) {
		done <- event
	})

	publisher := NewAsyncPublisher(bus)
	publisher.Publish(DropChargedEvent{Count: 3, Pending: 7})

	select {
	case event := <-done:
		assert.Equal(t, int64(7), event.(DropChargedEvent).Pending)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}
