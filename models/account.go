package models

import (
	"time"
)

// BetKind identifies which pending wager slot a bet occupies. An account can
// hold at most one outstanding wager per kind.
type BetKind string

const (
	BetKindClean BetKind = "clean"
	BetKindRace  BetKind = "race"
)

// AccountStats holds the cumulative gambling counters for an account
type AccountStats struct {
	TotalWagered   int64 `json:"total_wagered"`
	TotalWon       int64 `json:"total_won"`
	TotalLost      int64 `json:"total_lost"`
	BetsWon        int   `json:"bets_won"`
	BetsLost       int   `json:"bets_lost"`
	MostWagered    int64 `json:"most_wagered"`
	MostWon        int64 `json:"most_won"`
	MostLost       int64 `json:"most_lost"`
	WinStreak      int   `json:"win_streak"`
	LossStreak     int   `json:"loss_streak"`
	BestWinStreak  int   `json:"best_win_streak"`
	BestLossStreak int   `json:"best_loss_streak"`
	RecordBalance  int64 `json:"record_balance"`
	TotalCredited  int64 `json:"total_credited"`
	TotalDebited   int64 `json:"total_debited"`
}

// Account is one participant's ledger entry. Identities are opaque strings
// (Discord user IDs in production). Accounts are created lazily with all
// counters zeroed and are never deleted.
//
// The house account additionally owns the active Race and the historical
// per-token win/loss records; both are nil/empty for everyone else.
type Account struct {
	Balance    int64                   `json:"balance"`
	CleanWager int64                   `json:"clean_wager,omitempty"`
	RaceWager  int64                   `json:"race_wager,omitempty"`
	Stats      AccountStats            `json:"stats"`
	LastClaim  *time.Time              `json:"last_claim,omitempty"`
	Race       *Race                   `json:"race,omitempty"`
	TokenStats map[string]*TokenRecord `json:"token_stats,omitempty"`
}

// Wager returns the pending wager for the given bet kind.
func (a *Account) Wager(kind BetKind) int64 {
	switch kind {
	case BetKindClean:
		return a.CleanWager
	case BetKindRace:
		return a.RaceWager
	}
	return 0
}

// SetWager stores the pending wager for the given bet kind.
func (a *Account) SetWager(kind BetKind, amount int64) {
	switch kind {
	case BetKindClean:
		a.CleanWager = amount
	case BetKindRace:
		a.RaceWager = amount
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	if a.LastClaim != nil {
		t := *a.LastClaim
		c.LastClaim = &t
	}
	if a.Race != nil {
		c.Race = a.Race.Clone()
	}
	if a.TokenStats != nil {
		c.TokenStats = make(map[string]*TokenRecord, len(a.TokenStats))
		for token, rec := range a.TokenStats {
			r := *rec
			c.TokenStats[token] = &r
		}
	}
	return &c
}

// BetResult represents the outcome of a settled bet (returned to the caller)
type BetResult struct {
	Won        bool
	Wager      int64
	Payout     int64
	NewBalance int64
}

// TransferResult represents the outcome of a transfer (returned to the caller)
type TransferResult struct {
	Amount     int64
	Recipient  string
	NewBalance int64
}
