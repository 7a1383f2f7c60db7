package ledger

import "errors"

// Sentinel errors for ledger operations. All of these are denials handled
// locally by the caller: the operation that detects them performs no
// mutation, and none of them is ever fatal.
var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrAlreadyClaimedToday = errors.New("daily reserve already claimed today")
	ErrNoActiveRace        = errors.New("no race in progress")
	ErrRaceInProgress      = errors.New("race already in progress")
	ErrRaceFull            = errors.New("no racer tokens left")
	ErrDuplicateEntry      = errors.New("already entered in this race")
	ErrNoPendingWager      = errors.New("no pending wager to settle")
	ErrAlreadyLocked       = errors.New("operation already in progress")
)
