package models

import (
	"time"
)

// LedgerSnapshot is the full persisted state of the ledger: every account,
// including the house account's in-flight race and token records when a race
// was interrupted mid-run. Write-then-read must reproduce identical state.
//
// The transient drop counter is deliberately excluded: an unclaimed drop is
// forfeited by a restart, a wager never is.
type LedgerSnapshot struct {
	ID        string              `json:"id"`
	Accounts  map[string]*Account `json:"accounts"`
	CreatedAt time.Time           `json:"created_at"`
}
