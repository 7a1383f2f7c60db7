package ledger

import (
	"fmt"
	"sync"
	"testing"

	"bubbler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_StartRace(t *testing.T) {
	s := newTestStore()

	t.Run("invalid wager", func(t *testing.T) {
		assert.ErrorIs(t, s.StartRace(0, []string{"🐢"}), ErrInvalidAmount)
	})

	t.Run("opens a forming race", func(t *testing.T) {
		require.NoError(t, s.StartRace(25, []string{"🐢", "🐇"}))
		race := s.Race()
		require.NotNil(t, race)
		assert.Equal(t, models.RaceForming, race.Status)
		assert.Equal(t, int64(25), race.Wager)
		assert.Empty(t, race.Entrants)
	})

	t.Run("only one race at a time", func(t *testing.T) {
		assert.ErrorIs(t, s.StartRace(10, []string{"🐕"}), ErrRaceInProgress)
	})
}

func TestStore_EnterRace(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Credit("alice", 100))
	require.NoError(t, s.Credit("bob", 100))
	require.NoError(t, s.Credit("carol", 10))
	require.NoError(t, s.StartRace(25, []string{"🐢", "🐇", "🐎"}))

	t.Run("tokens drawn from the pool tail", func(t *testing.T) {
		token, position, err := s.EnterRace("alice")
		require.NoError(t, err)
		assert.Equal(t, "🐎", token)
		assert.Equal(t, 1, position)

		token, position, err = s.EnterRace("bob")
		require.NoError(t, err)
		assert.Equal(t, "🐇", token)
		assert.Equal(t, 2, position)
	})

	t.Run("entry escrows the fixed wager", func(t *testing.T) {
		alice := s.Account("alice")
		assert.Equal(t, int64(75), alice.Balance)
		assert.Equal(t, int64(25), alice.RaceWager)
		assert.Equal(t, int64(50), s.Account("house").Balance)
	})

	t.Run("duplicate entry rejected", func(t *testing.T) {
		_, _, err := s.EnterRace("alice")
		assert.ErrorIs(t, err, ErrDuplicateEntry)
	})

	t.Run("entrant who cannot afford the wager rejected", func(t *testing.T) {
		_, _, err := s.EnterRace("carol")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, int64(10), s.Account("carol").Balance)
	})

	t.Run("exhausted pool rejects further entries", func(t *testing.T) {
		require.NoError(t, s.Credit("carol", 100))
		_, _, err := s.EnterRace("carol")
		require.NoError(t, err)

		require.NoError(t, s.Credit("dave", 100))
		_, _, err = s.EnterRace("dave")
		assert.ErrorIs(t, err, ErrRaceFull)
	})

	t.Run("no entries once active", func(t *testing.T) {
		_, err := s.ActivateRace()
		require.NoError(t, err)

		require.NoError(t, s.Credit("erin", 100))
		_, _, err = s.EnterRace("erin")
		assert.ErrorIs(t, err, ErrRaceInProgress)
	})

	t.Run("no race at all", func(t *testing.T) {
		fresh := newTestStore()
		_, _, err := fresh.EnterRace("alice")
		assert.ErrorIs(t, err, ErrNoActiveRace)
	})
}

func TestStore_EnterRace_ConcurrentOrdinals(t *testing.T) {
	// The entry ordinal decides who schedules the countdown, so exactly
	// one of any number of simultaneous entrants must see position 1.
	s := newTestStore()
	const entrants = 8
	tokens := []string{"🐢", "🐇", "🐎", "🐕", "🐈", "🐖", "🐄", "🐐"}
	for i := 0; i < entrants; i++ {
		require.NoError(t, s.Credit(fmt.Sprintf("racer-%d", i), 100))
	}
	require.NoError(t, s.StartRace(25, tokens))

	positions := make(chan int, entrants)
	var wg sync.WaitGroup
	for i := 0; i < entrants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, position, err := s.EnterRace(fmt.Sprintf("racer-%d", i))
			assert.NoError(t, err)
			positions <- position
		}(i)
	}
	wg.Wait()
	close(positions)

	seen := make(map[int]int)
	for p := range positions {
		seen[p]++
	}
	for p := 1; p <= entrants; p++ {
		assert.Equal(t, 1, seen[p], "position %d assigned once", p)
	}
}

func TestStore_CancelRace(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Credit("alice", 100))
	require.NoError(t, s.StartRace(25, []string{"🐢", "🐇"}))
	_, _, err := s.EnterRace("alice")
	require.NoError(t, err)
	totalBefore := s.TotalBalance()

	refunds := s.CancelRace()
	assert.Equal(t, map[string]int64{"alice": 25}, refunds)

	alice := s.Account("alice")
	assert.Equal(t, int64(100), alice.Balance)
	assert.Zero(t, alice.RaceWager)
	assert.Zero(t, s.Account("house").Balance)
	assert.Nil(t, s.Race())
	assert.Equal(t, totalBefore, s.TotalBalance())

	t.Run("cancel without a race", func(t *testing.T) {
		assert.Nil(t, s.CancelRace())
	})
}

func TestStore_SettleRace(t *testing.T) {
	setup := func(t *testing.T) (*Store, models.RaceEntrant, models.RaceEntrant) {
		s := newTestStore()
		require.NoError(t, s.Credit("house", 500))
		require.NoError(t, s.Credit("alice", 100))
		require.NoError(t, s.Credit("bob", 100))
		require.NoError(t, s.StartRace(25, []string{"🐢", "🐇"}))
		_, _, err := s.EnterRace("alice")
		require.NoError(t, err)
		_, _, err = s.EnterRace("bob")
		require.NoError(t, err)
		_, err = s.ActivateRace()
		require.NoError(t, err)

		race := s.Race()
		return s, race.Entrants[0], race.Entrants[1]
	}

	t.Run("pays the winner from the house", func(t *testing.T) {
		s, winner, loser := setup(t)
		totalBefore := s.TotalBalance()

		settlement, err := s.SettleRace(winner, 50, 0)
		require.NoError(t, err)

		assert.Equal(t, winner, settlement.Result.Winner)
		assert.Equal(t, int64(25), settlement.Result.Wager)
		assert.Equal(t, int64(50), settlement.Result.Payout)
		assert.Equal(t, 2, settlement.Result.RacerCount)
		assert.Zero(t, settlement.HouseRefill)

		// 100 - 25 entry + 50 payout
		assert.Equal(t, int64(125), s.Account(winner.Identity).Balance)
		assert.Equal(t, int64(75), s.Account(loser.Identity).Balance)
		// 500 + 50 escrow - 50 payout
		assert.Equal(t, int64(500), s.Account("house").Balance)
		assert.Equal(t, totalBefore, s.TotalBalance())
	})

	t.Run("bonus paid on top", func(t *testing.T) {
		s, winner, _ := setup(t)
		settlement, err := s.SettleRace(winner, 50, 30)
		require.NoError(t, err)
		assert.Equal(t, int64(30), settlement.Result.Bonus)
		assert.Equal(t, int64(155), s.Account(winner.Identity).Balance)
		assert.Equal(t, int64(470), s.Account("house").Balance)
	})

	t.Run("race evicted before payout, settlement runs once", func(t *testing.T) {
		s, winner, _ := setup(t)
		_, err := s.SettleRace(winner, 50, 0)
		require.NoError(t, err)

		assert.Nil(t, s.Race())
		_, err = s.SettleRace(winner, 50, 0)
		assert.ErrorIs(t, err, ErrNoActiveRace)
	})

	t.Run("pending race wagers cleared for every entrant", func(t *testing.T) {
		s, winner, loser := setup(t)
		_, err := s.SettleRace(winner, 50, 0)
		require.NoError(t, err)
		assert.Zero(t, s.Account(winner.Identity).RaceWager)
		assert.Zero(t, s.Account(loser.Identity).RaceWager)
	})

	t.Run("token records updated", func(t *testing.T) {
		s, winner, loser := setup(t)
		_, err := s.SettleRace(winner, 50, 0)
		require.NoError(t, err)

		rate, ok := s.TokenWinRate(winner.Token)
		require.True(t, ok)
		assert.Equal(t, float64(100), rate)

		rate, ok = s.TokenWinRate(loser.Token)
		require.True(t, ok)
		assert.Zero(t, rate)

		_, ok = s.TokenWinRate("🦆")
		assert.False(t, ok)
	})

	t.Run("deep house deficit refilled", func(t *testing.T) {
		s, winner, _ := setup(t)
		settlement, err := s.SettleRace(winner, 500, 200)
		require.NoError(t, err)

		// 550 in the house, 700 out
		assert.Equal(t, int64(650), settlement.HouseRefill)
		assert.Equal(t, int64(500), s.Account("house").Balance)
	})
}

func TestStore_RecoverRace(t *testing.T) {
	t.Run("nothing to recover", func(t *testing.T) {
		s := newTestStore()
		assert.Nil(t, s.RecoverRace())
	})

	t.Run("refunds an interrupted race", func(t *testing.T) {
		s := newTestStore()
		require.NoError(t, s.Credit("alice", 100))
		require.NoError(t, s.Credit("bob", 100))
		require.NoError(t, s.StartRace(25, []string{"🐢", "🐇"}))
		_, _, err := s.EnterRace("alice")
		require.NoError(t, err)
		_, _, err = s.EnterRace("bob")
		require.NoError(t, err)
		_, err = s.ActivateRace()
		require.NoError(t, err)

		// Simulate the restart: state survives in a snapshot
		restored := newTestStore()
		restored.Restore(s.Snapshot())

		refunds := restored.RecoverRace()
		assert.Equal(t, map[string]int64{"alice": 25, "bob": 25}, refunds)
		assert.Equal(t, int64(100), restored.Account("alice").Balance)
		assert.Equal(t, int64(100), restored.Account("bob").Balance)
		assert.Nil(t, restored.Race())
	})
}
