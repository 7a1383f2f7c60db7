package testutil

import (
	"time"

	"bubbler/models"

	"github.com/google/uuid"
)

// CreateTestAccount creates an account with a starting balance
func CreateTestAccount(balance int64) *models.Account {
	return &models.Account{
		Balance: balance,
		Stats: models.AccountStats{
			TotalCredited: balance,
			RecordBalance: balance,
		},
	}
}

// CreateTestSnapshot creates a snapshot holding the given accounts
func CreateTestSnapshot(accounts map[string]*models.Account) *models.LedgerSnapshot {
	return &models.LedgerSnapshot{
		ID:        uuid.New().String(),
		Accounts:  accounts,
		CreatedAt: time.Now().UTC(),
	}
}

// CreateTestBalanceHistory creates a balance history entry
func CreateTestBalanceHistory(identity string, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		Identity:        identity,
		BalanceBefore:   1000,
		BalanceAfter:    900,
		ChangeAmount:    -100,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}

// CreateTestBalanceHistoryWithAmounts creates a balance history entry with specific amounts
func CreateTestBalanceHistoryWithAmounts(identity string, before, after int64, transactionType models.TransactionType) *models.BalanceHistory {
	history := CreateTestBalanceHistory(identity, transactionType)
	history.BalanceBefore = before
	history.BalanceAfter = after
	history.ChangeAmount = after - before
	return history
}
