package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial        TransactionType = "initial"
	TransactionTypeDailyClaim     TransactionType = "daily_claim"
	TransactionTypeBetWin         TransactionType = "bet_win"
	TransactionTypeBetLoss        TransactionType = "bet_loss"
	TransactionTypeRaceEntry      TransactionType = "race_entry"
	TransactionTypeRaceWin        TransactionType = "race_win"
	TransactionTypeRaceBonus      TransactionType = "race_bonus"
	TransactionTypeRaceRefund     TransactionType = "race_refund"
	TransactionTypeTransferIn     TransactionType = "transfer_in"
	TransactionTypeTransferOut    TransactionType = "transfer_out"
	TransactionTypeDropDischarge  TransactionType = "drop_discharge"
	TransactionTypeDropClaim      TransactionType = "drop_claim"
	TransactionTypeRedistribution TransactionType = "redistribution"
	TransactionTypeTheftOut       TransactionType = "theft_out"
	TransactionTypeTheftReturn    TransactionType = "theft_return"
	TransactionTypeStealOut       TransactionType = "steal_out"
	TransactionTypeStealIn        TransactionType = "steal_in"
	TransactionTypeHouseRefill    TransactionType = "house_refill"
)

// BalanceHistory represents a historical balance change. Recording is
// best-effort: failures are logged and never roll back the ledger.
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	Identity            string          `db:"identity"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}
