package service

import (
	"context"
	"math/rand"
	"testing"

	"bubbler/events"
	"bubbler/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBettingService_PlayClean(t *testing.T) {
	ctx := context.Background()

	t.Run("outcomes settle consistently", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			store := ledger.New("house", "pool", 500)
			require.NoError(t, store.Credit("house", 10000))
			require.NoError(t, store.Credit("alice", 100))
			publisher := &RecordingPublisher{}
			svc := NewBettingService(store, nil, nil, publisher, rand.New(rand.NewSource(seed)))

			result, err := svc.PlayClean(ctx, "alice", 40)
			require.NoError(t, err)

			if result.Won {
				assert.Equal(t, int64(80), result.Payout)
				assert.Equal(t, int64(140), result.NewBalance)
			} else {
				assert.Zero(t, result.Payout)
				assert.Equal(t, int64(60), result.NewBalance)
			}
			assert.Equal(t, int64(40), result.Wager)
			assert.Equal(t, result.NewBalance, store.Account("alice").Balance)

			// The wager slot is always cleared
			assert.Zero(t, store.Account("alice").CleanWager)

			// Escrow in, payout out: the total never changes
			assert.Equal(t, int64(10100), store.TotalBalance())

			settled := publisher.ByType(events.EventTypeBetSettled)
			require.Len(t, settled, 1)
			event := settled[0].(events.BetSettledEvent)
			assert.Equal(t, "alice", event.Identity)
			assert.Equal(t, result.Won, event.Won)
		}
	})

	t.Run("both outcomes occur", func(t *testing.T) {
		store := ledger.New("house", "pool", 500)
		require.NoError(t, store.Credit("house", 1000000))
		require.NoError(t, store.Credit("alice", 1000000))
		svc := NewBettingService(store, nil, nil, nil, rand.New(rand.NewSource(42)))

		wins, losses := 0, 0
		for i := 0; i < 100; i++ {
			result, err := svc.PlayClean(ctx, "alice", 10)
			require.NoError(t, err)
			if result.Won {
				wins++
			} else {
				losses++
			}
		}
		assert.Positive(t, wins)
		assert.Positive(t, losses)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		store := ledger.New("house", "pool", 500)
		require.NoError(t, store.Credit("alice", 10))
		svc := NewBettingService(store, nil, nil, nil, rand.New(rand.NewSource(1)))

		_, err := svc.PlayClean(ctx, "alice", 11)
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		assert.Equal(t, int64(10), store.Account("alice").Balance)
	})

	t.Run("invalid amount", func(t *testing.T) {
		store := ledger.New("house", "pool", 500)
		svc := NewBettingService(store, nil, nil, nil, rand.New(rand.NewSource(1)))

		_, err := svc.PlayClean(ctx, "alice", 0)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})
}
