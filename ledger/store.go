package ledger

import (
	"math"
	"sort"
	"sync"
	"time"

	"bubbler/models"
)

// Store is the in-memory ledger: the single shared mutable resource of the
// economy. Every mutating operation runs to completion under one mutex, so
// each command or timer callback is an atomic unit relative to every other.
// The store is authoritative; persistence is a fire-and-forget snapshot
// taken after mutations and written by a collaborator.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*models.Account

	houseID    string
	poolID     string
	houseFloor int64

	// transient count of dropped, unclaimed bubbles; not snapshotted
	dropped int64

	// named re-entrancy guards for long-running events
	opLocks map[string]bool
}

// Settlement is the ledger-side outcome of settling a wager.
type Settlement struct {
	Result      models.BetResult
	HouseRefill int64 // injected to restore the house floor, 0 if none
}

// New creates an empty ledger store. The house account funds payouts and may
// go negative; whenever it does, it is reset to houseFloor. The pool account
// accumulates seized and diverted bubbles for redistribution.
func New(houseID, poolID string, houseFloor int64) *Store {
	return &Store{
		accounts:   make(map[string]*models.Account),
		houseID:    houseID,
		poolID:     poolID,
		houseFloor: houseFloor,
		opLocks:    make(map[string]bool),
	}
}

// HouseID returns the identity of the house account.
func (s *Store) HouseID() string { return s.houseID }

// PoolID returns the identity of the redistribution pool account.
func (s *Store) PoolID() string { return s.poolID }

// account returns the live entry for id, creating a zeroed one if absent.
// Callers must hold s.mu.
func (s *Store) account(id string) *models.Account {
	a, ok := s.accounts[id]
	if !ok {
		a = &models.Account{}
		s.accounts[id] = a
	}
	return a
}

// Account returns a copy of the ledger entry for id, creating a zeroed entry
// if none exists. Creation has no stat side effects.
func (s *Store) Account(id string) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(id).Clone()
}

// Identities returns every known identity in sorted order.
func (s *Store) Identities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Leader returns the identity holding the largest balance, house and pool
// excluded. Ties break toward the lexicographically smaller identity. ok is
// false when no participant accounts exist.
func (s *Store) Leader() (identity string, balance int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.accounts {
		if id == s.houseID || id == s.poolID {
			continue
		}
		if !ok || a.Balance > balance || (a.Balance == balance && id < identity) {
			identity, balance, ok = id, a.Balance, true
		}
	}
	return identity, balance, ok
}

// TotalBalance returns the sum of every balance, house included. Transfers
// and bet settlements leave it unchanged; only designed injections and
// extractions (daily claims, drops, bonuses, refills) move it.
func (s *Store) TotalBalance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, a := range s.accounts {
		total += a.Balance
	}
	return total
}

// credit adds amount to the account and maintains the credited/record stats.
// Callers must hold s.mu.
func (s *Store) credit(a *models.Account, amount int64) {
	a.Balance += amount
	a.Stats.TotalCredited += amount
	if a.Balance > a.Stats.RecordBalance {
		a.Stats.RecordBalance = a.Balance
	}
}

// debit removes amount from the account and maintains the debited stat.
// Callers must hold s.mu and have verified funds.
func (s *Store) debit(a *models.Account, amount int64) {
	a.Balance -= amount
	a.Stats.TotalDebited += amount
}

// Credit adds amount to the identity's balance, creating the account if
// absent.
func (s *Store) Credit(id string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credit(s.account(id), amount)
	return nil
}

// Debit removes amount from the identity's balance. The balance must cover
// the amount; on failure nothing is mutated.
func (s *Store) Debit(id string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(id)
	if a.Balance < amount {
		return ErrInsufficientFunds
	}
	s.debit(a, amount)
	return nil
}

// Transfer moves amount from one identity to another as a single atomic
// ledger operation.
func (s *Store) Transfer(from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.account(from)
	if src.Balance < amount {
		return ErrInsufficientFunds
	}
	s.debit(src, amount)
	s.credit(s.account(to), amount)
	return nil
}

// ClaimDaily credits the daily reserve amount unless the identity already
// claimed on the same UTC calendar day.
func (s *Store) ClaimDaily(id string, amount int64, now time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(id)
	if a.LastClaim != nil && sameDay(*a.LastClaim, now) {
		return ErrAlreadyClaimedToday
	}
	s.credit(a, amount)
	stamp := now.UTC()
	a.LastClaim = &stamp
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// placeWager escrows amount from the account into the house float and
// records it as the pending wager for kind. Callers must hold s.mu.
func (s *Store) placeWager(id string, amount int64, kind models.BetKind) error {
	a := s.account(id)
	if a.Balance < amount {
		return ErrInsufficientFunds
	}
	s.debit(a, amount)
	s.credit(s.account(s.houseID), amount)
	a.SetWager(kind, amount)
	a.Stats.TotalWagered += amount
	if amount > a.Stats.MostWagered {
		a.Stats.MostWagered = amount
	}
	return nil
}

// PlaceWager deducts the wager up front, escrows it with the house and
// tracks it as pending for the given bet kind.
func (s *Store) PlaceWager(id string, amount int64, kind models.BetKind) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeWager(id, amount, kind)
}

// SettleWager resolves the pending wager for kind. On a win the payout is
// moved from the house to the account; on a loss the escrowed wager stays
// with the house. The pending wager is always cleared, win or lose, so a
// stuck wager can never block future bets.
func (s *Store) SettleWager(id string, kind models.BetKind, won bool, payout int64) (*Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.account(id)
	wager := a.Wager(kind)
	if wager == 0 {
		return nil, ErrNoPendingWager
	}
	a.SetWager(kind, 0)

	house := s.account(s.houseID)
	if won {
		house.Balance -= payout
		s.credit(a, payout)
		a.Stats.BetsWon++
		a.Stats.TotalWon += payout
		if payout > a.Stats.MostWon {
			a.Stats.MostWon = payout
		}
		s.recordStreak(&a.Stats, true)
	} else {
		payout = 0
		a.Stats.BetsLost++
		a.Stats.TotalLost += wager
		if wager > a.Stats.MostLost {
			a.Stats.MostLost = wager
		}
		s.recordStreak(&a.Stats, false)
	}

	return &Settlement{
		Result: models.BetResult{
			Won:        won,
			Wager:      wager,
			Payout:     payout,
			NewBalance: a.Balance,
		},
		HouseRefill: s.refillHouse(),
	}, nil
}

// recordStreak advances the current streak for the outcome, resets the
// opposite streak and maintains the historical bests.
func (s *Store) recordStreak(stats *models.AccountStats, won bool) {
	if won {
		stats.WinStreak++
		stats.LossStreak = 0
		if stats.WinStreak > stats.BestWinStreak {
			stats.BestWinStreak = stats.WinStreak
		}
	} else {
		stats.LossStreak++
		stats.WinStreak = 0
		if stats.LossStreak > stats.BestLossStreak {
			stats.BestLossStreak = stats.LossStreak
		}
	}
}

// refillHouse resets a negative house balance to the configured floor and
// returns the injected amount. Callers must hold s.mu.
func (s *Store) refillHouse() int64 {
	house := s.account(s.houseID)
	if house.Balance >= 0 {
		return 0
	}
	injected := s.houseFloor - house.Balance
	house.Balance = s.houseFloor
	return injected
}

// Dropped returns the current unclaimed drop counter.
func (s *Store) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// AddDrop increments the unclaimed drop counter by n freshly minted bubbles.
func (s *Store) AddDrop(n int64) error {
	if n <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped += n
	return nil
}

// DischargeFrom removes n bubbles from the identity's balance and adds them
// to the unclaimed drop counter for someone else to claim.
func (s *Store) DischargeFrom(id string, n int64) error {
	if n <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(id)
	if a.Balance < n {
		return ErrInsufficientFunds
	}
	s.debit(a, n)
	s.dropped += n
	return nil
}

// ClaimDrops credits the whole unclaimed drop counter to the identity and
// resets it. Returns the amount claimed, 0 when nothing was dropped.
func (s *Store) ClaimDrops(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropped < 1 {
		return 0
	}
	claimed := s.dropped
	s.credit(s.account(id), claimed)
	s.dropped = 0
	return claimed
}

// RedistributePool divides the pool account across the population when it
// has accumulated at least floor. Each account other than the pool receives
// share = ⌊(pool/divisor)/n − 1⌋ where n is the number of known accounts;
// the pool keeps the remainder. Returns the share and the recipient count,
// (0, 0) when the pool is below the floor or the share comes out empty.
func (s *Store) RedistributePool(divisor float64, floor int64) (share int64, recipients int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.account(s.poolID)
	if pool.Balance < floor {
		return 0, 0
	}

	n := len(s.accounts)
	share = int64(math.Floor(float64(pool.Balance)/divisor/float64(n) - 1))
	if share <= 0 {
		return 0, 0
	}

	for id, a := range s.accounts {
		if id == s.poolID {
			continue
		}
		a.Balance += share
		recipients++
	}
	pool.Balance -= share * int64(recipients)
	return share, recipients
}

// SeizeThirds moves a third of every balance (house and pool excepted) into
// the pool account and returns the exact per-identity amounts taken, so the
// seizure can later be reversed verbatim.
func (s *Store) SeizeThirds() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seized := make(map[string]int64)
	pool := s.account(s.poolID)
	for id, a := range s.accounts {
		if id == s.houseID || id == s.poolID {
			continue
		}
		third := int64(math.Round(float64(a.Balance) / 3))
		if third <= 0 {
			continue
		}
		a.Balance -= third
		pool.Balance += third
		seized[id] = third
	}
	return seized
}

// ReturnSeized moves previously seized amounts from the pool back to their
// owners, restoring each balance exactly.
func (s *Store) ReturnSeized(seized map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool := s.account(s.poolID)
	for id, amount := range seized {
		s.account(id).Balance += amount
		pool.Balance -= amount
	}
}

// Steal moves amount from the victim to the thief if the victim can cover
// it. Balances only; no stats are kept on theft.
func (s *Store) Steal(thief, victim string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.account(victim)
	if v.Balance < amount {
		return ErrInsufficientFunds
	}
	v.Balance -= amount
	s.account(thief).Balance += amount
	return nil
}

// TryLock acquires the named re-entrancy guard, failing with
// ErrAlreadyLocked if an instance of the operation is still outstanding.
func (s *Store) TryLock(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opLocks[name] {
		return ErrAlreadyLocked
	}
	s.opLocks[name] = true
	return nil
}

// Unlock releases the named re-entrancy guard.
func (s *Store) Unlock(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.opLocks, name)
}

// Snapshot returns a deep copy of every account for persistence. The caller
// assigns the snapshot ID.
func (s *Store) Snapshot() *models.LedgerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make(map[string]*models.Account, len(s.accounts))
	for id, a := range s.accounts {
		accounts[id] = a.Clone()
	}
	return &models.LedgerSnapshot{
		Accounts:  accounts,
		CreatedAt: time.Now().UTC(),
	}
}

// Restore replaces the ledger contents with the snapshot's accounts.
func (s *Store) Restore(snap *models.LedgerSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]*models.Account, len(snap.Accounts))
	for id, a := range snap.Accounts {
		s.accounts[id] = a.Clone()
	}
}
