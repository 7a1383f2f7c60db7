package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bubbler/models"
	"bubbler/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	t.Run("no snapshot saved", func(t *testing.T) {
		snapshot, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("round trip", func(t *testing.T) {
		claim := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		original := testutil.CreateTestSnapshot(map[string]*models.Account{
			"alice": {
				Balance:   750,
				LastClaim: &claim,
				Stats: models.AccountStats{
					TotalWagered:  300,
					BetsWon:       2,
					RecordBalance: 900,
				},
			},
			"house": {
				Balance: 500,
				Race: &models.Race{
					Wager:  100,
					Status: models.RaceForming,
					Entrants: []models.RaceEntrant{
						{Identity: "alice", Token: "🐢"},
					},
					Pool: []string{"🐇", "🦀"},
				},
				TokenStats: map[string]*models.TokenRecord{
					"🐢": {Wins: 3, Losses: 1},
				},
			},
		})

		err := repo.Save(ctx, original)
		require.NoError(t, err)

		loaded, err := repo.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, original.ID, loaded.ID)
		require.Contains(t, loaded.Accounts, "alice")
		require.Contains(t, loaded.Accounts, "house")

		alice := loaded.Accounts["alice"]
		assert.Equal(t, int64(750), alice.Balance)
		require.NotNil(t, alice.LastClaim)
		assert.True(t, claim.Equal(*alice.LastClaim))
		assert.Equal(t, int64(300), alice.Stats.TotalWagered)

		house := loaded.Accounts["house"]
		require.NotNil(t, house.Race)
		assert.Equal(t, models.RaceForming, house.Race.Status)
		assert.Len(t, house.Race.Entrants, 1)
		assert.Equal(t, []string{"🐇", "🦀"}, house.Race.Pool)
		require.Contains(t, house.TokenStats, "🐢")
		assert.Equal(t, 3, house.TokenStats["🐢"].Wins)
	})

	t.Run("load returns newest", func(t *testing.T) {
		older := testutil.CreateTestSnapshot(map[string]*models.Account{
			"bob": {Balance: 1},
		})
		older.CreatedAt = time.Now().UTC().Add(-time.Hour)
		require.NoError(t, repo.Save(ctx, older))

		newer := testutil.CreateTestSnapshot(map[string]*models.Account{
			"bob": {Balance: 2},
		})
		require.NoError(t, repo.Save(ctx, newer))

		loaded, err := repo.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, newer.ID, loaded.ID)
		assert.Equal(t, int64(2), loaded.Accounts["bob"].Balance)
	})
}

func TestSnapshotRepository_Pruning(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < snapshotsToKeep+5; i++ {
		snapshot := testutil.CreateTestSnapshot(map[string]*models.Account{
			"carol": testutil.CreateTestAccount(int64(i)),
		})
		snapshot.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(ctx, snapshot))
	}

	var count int
	err := testDB.DB.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_snapshots").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, snapshotsToKeep, count)

	// The newest snapshot survives pruning
	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(snapshotsToKeep+4), loaded.Accounts["carol"].Balance)
}

func TestBalanceHistoryRepository_RecordAndQuery(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	t.Run("record assigns id and timestamp", func(t *testing.T) {
		history := testutil.CreateTestBalanceHistoryWithAmounts("dave", 100, 150, models.TransactionTypeDailyClaim)
		err := repo.Record(ctx, history)
		require.NoError(t, err)

		assert.NotZero(t, history.ID)
		assert.False(t, history.CreatedAt.IsZero())
	})

	t.Run("get by identity", func(t *testing.T) {
		identity := fmt.Sprintf("erin-%s", uuid.New().String())
		for i := 0; i < 3; i++ {
			history := testutil.CreateTestBalanceHistoryWithAmounts(identity, int64(i*100), int64(i*100+50), models.TransactionTypeBetWin)
			require.NoError(t, repo.Record(ctx, history))
		}

		histories, err := repo.GetByIdentity(ctx, identity, 10)
		require.NoError(t, err)
		assert.Len(t, histories, 3)
		for _, history := range histories {
			assert.Equal(t, identity, history.Identity)
			assert.Equal(t, models.TransactionTypeBetWin, history.TransactionType)
			assert.Equal(t, true, history.TransactionMetadata["test"])
		}
	})

	t.Run("limit applied", func(t *testing.T) {
		identity := fmt.Sprintf("frank-%s", uuid.New().String())
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.Record(ctx, testutil.CreateTestBalanceHistory(identity, models.TransactionTypeBetLoss)))
		}

		histories, err := repo.GetByIdentity(ctx, identity, 2)
		require.NoError(t, err)
		assert.Len(t, histories, 2)
	})

	t.Run("date range", func(t *testing.T) {
		identity := fmt.Sprintf("grace-%s", uuid.New().String())
		require.NoError(t, repo.Record(ctx, testutil.CreateTestBalanceHistory(identity, models.TransactionTypeTransferIn)))

		from := time.Now().UTC().Add(-time.Minute)
		to := time.Now().UTC().Add(time.Minute)
		histories, err := repo.GetByDateRange(ctx, identity, from, to)
		require.NoError(t, err)
		assert.Len(t, histories, 1)

		histories, err = repo.GetByDateRange(ctx, identity, from.Add(-2*time.Hour), to.Add(-2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, histories)
	})
}
