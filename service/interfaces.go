package service

import (
	"context"
	"time"

	"bubbler/events"
	"bubbler/models"
)

// SnapshotStore defines the interface for whole-ledger snapshot persistence
type SnapshotStore interface {
	// Save persists a snapshot of the full ledger state
	Save(ctx context.Context, snapshot *models.LedgerSnapshot) error

	// Load returns the most recent snapshot, or nil if none exists
	Load(ctx context.Context) (*models.LedgerSnapshot, error)
}

// HistoryRecorder defines the interface for balance history tracking
type HistoryRecorder interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByIdentity returns balance history for a specific account
	GetByIdentity(ctx context.Context, identity string, limit int) ([]*models.BalanceHistory, error)

	// GetByDateRange returns balance history within a date range
	GetByDateRange(ctx context.Context, identity string, from, to time.Time) ([]*models.BalanceHistory, error)
}

// Announcement is a renderable message destined for the community channel
type Announcement struct {
	Title     string
	Body      string
	Identity  string // account the announcement concerns, if any
	Image     string
	Thumbnail string
	Footer    string
}

// Announcer defines the interface for publishing announcements to chat
type Announcer interface {
	Announce(ctx context.Context, a Announcement)
}

// AccountService defines the interface for account operations
type AccountService interface {
	// GetAccount returns a copy of the account for an identity
	GetAccount(ctx context.Context, identity string) (*models.Account, error)

	// Credit adds amount to an account's balance
	Credit(ctx context.Context, identity string, amount int64, txType models.TransactionType) (int64, error)

	// Debit removes amount from an account's balance
	Debit(ctx context.Context, identity string, amount int64, txType models.TransactionType) (int64, error)

	// Transfer moves amount between two accounts
	Transfer(ctx context.Context, from, to string, amount int64) (*models.TransferResult, error)

	// ClaimDaily grants the daily allowance once per UTC day
	ClaimDaily(ctx context.Context, identity string) (int64, error)

	// Leader returns the identity with the largest army, if any exists
	Leader(ctx context.Context) (string, int64, bool)
}

// BettingService defines the interface for the clean bet game
type BettingService interface {
	// PlayClean runs a full even-odds bet for an identity
	PlayClean(ctx context.Context, identity string, amount int64) (*models.BetResult, error)
}

// RaceService defines the interface for race operations
type RaceService interface {
	// CreateOrEnter opens a race at the given wager, or joins the forming one
	CreateOrEnter(ctx context.Context, identity string, wager int64) error

	// RecoverUnfinishedRace refunds entrants of a race interrupted by a restart
	RecoverUnfinishedRace(ctx context.Context) error
}

// DropService defines the interface for passive economy events
type DropService interface {
	// MaybeDischarge randomly spills bubbles onto the floor
	MaybeDischarge(ctx context.Context)

	// Discharge spills bubbles from an identity's own balance
	Discharge(ctx context.Context, identity string, count int64) error

	// Claim awards all pending dropped bubbles to an identity
	Claim(ctx context.Context, identity string) (int64, error)

	// Redistribute empties the pool across all other accounts when it is rich enough
	Redistribute(ctx context.Context) error

	// TemporaryTheft seizes a third of every balance and returns it later
	TemporaryTheft(ctx context.Context) error

	// Steal moves amount from victim to thief
	Steal(ctx context.Context, thief, victim string, amount int64) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}
