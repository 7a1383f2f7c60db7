package ledger

import (
	"bubbler/models"
)

// RaceSettlement is the ledger-side outcome of settling a race.
type RaceSettlement struct {
	Result      models.RaceResult
	HouseRefill int64
}

// Race returns a copy of the race in progress, or nil when there is none.
func (s *Store) Race() *models.Race {
	s.mu.Lock()
	defer s.mu.Unlock()
	race := s.account(s.houseID).Race
	if race == nil {
		return nil
	}
	return race.Clone()
}

// StartRace creates a forming race owned by the house account. The token
// pool must already be shuffled; entrants draw from its tail without
// replacement. Only one race may exist at a time.
func (s *Store) StartRace(wager int64, pool []string) error {
	if wager <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	house := s.account(s.houseID)
	if house.Race != nil {
		return ErrRaceInProgress
	}
	house.Race = &models.Race{
		Wager:  wager,
		Status: models.RaceForming,
		Pool:   append([]string(nil), pool...),
	}
	return nil
}

// EnterRace escrows the race's fixed wager from the identity and assigns the
// next token from the pool. Entry is rejected once the race is active, on a
// duplicate entry, when the pool is exhausted, or when the balance cannot
// cover the wager. The returned position is the 1-based entry ordinal,
// assigned under the store lock so exactly one concurrent entrant ever
// observes position 1.
func (s *Store) EnterRace(id string) (token string, position int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	house := s.account(s.houseID)
	race := house.Race
	switch {
	case race == nil:
		return "", 0, ErrNoActiveRace
	case race.Status == models.RaceActive:
		return "", 0, ErrRaceInProgress
	case race.Entered(id):
		return "", 0, ErrDuplicateEntry
	case len(race.Pool) == 0:
		return "", 0, ErrRaceFull
	}

	if err := s.placeWager(id, race.Wager, models.BetKindRace); err != nil {
		return "", 0, err
	}

	token = race.Pool[len(race.Pool)-1]
	race.Pool = race.Pool[:len(race.Pool)-1]
	race.Entrants = append(race.Entrants, models.RaceEntrant{Identity: id, Token: token})
	return token, len(race.Entrants), nil
}

// ActivateRace closes the entry window and returns a copy of the race ready
// for simulation.
func (s *Store) ActivateRace() (*models.Race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	race := s.account(s.houseID).Race
	if race == nil {
		return nil, ErrNoActiveRace
	}
	race.Status = models.RaceActive
	return race.Clone(), nil
}

// CancelRace refunds every entrant's escrowed wager from the house float,
// clears the pending race wagers and destroys the race. Returns the
// per-identity refunds, nil when no race existed. Used both for the
// too-few-entrants cancellation and for crash recovery after a restart.
func (s *Store) CancelRace() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelRace()
}

func (s *Store) cancelRace() map[string]int64 {
	house := s.account(s.houseID)
	race := house.Race
	if race == nil {
		return nil
	}

	refunds := make(map[string]int64, len(race.Entrants))
	for _, e := range race.Entrants {
		a := s.account(e.Identity)
		wager := a.Wager(models.BetKindRace)
		if wager == 0 {
			continue
		}
		house.Balance -= wager
		s.credit(a, wager)
		a.SetWager(models.BetKindRace, 0)
		refunds[e.Identity] = wager
	}
	house.Race = nil
	return refunds
}

// SettleRace destroys the race, pays the winner payout plus bonus from the
// house float, updates the lifetime record of every token that raced and
// clears all entrants' pending race wagers. The race is evicted before any
// payout, so settlement can only ever run once.
func (s *Store) SettleRace(winner models.RaceEntrant, payout, bonus int64) (*RaceSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	house := s.account(s.houseID)
	race := house.Race
	if race == nil {
		return nil, ErrNoActiveRace
	}
	house.Race = nil

	if house.TokenStats == nil {
		house.TokenStats = make(map[string]*models.TokenRecord)
	}
	for _, e := range race.Entrants {
		rec := house.TokenStats[e.Token]
		if rec == nil {
			rec = &models.TokenRecord{}
			house.TokenStats[e.Token] = rec
		}
		if e.Token == winner.Token {
			rec.Wins++
		} else {
			rec.Losses++
		}
		s.account(e.Identity).SetWager(models.BetKindRace, 0)
	}

	winnings := payout + bonus
	house.Balance -= winnings
	s.credit(s.account(winner.Identity), winnings)

	return &RaceSettlement{
		Result: models.RaceResult{
			Winner:     winner,
			Wager:      race.Wager,
			Payout:     payout,
			Bonus:      bonus,
			RacerCount: len(race.Entrants),
		},
		HouseRefill: s.refillHouse(),
	}, nil
}

// RecoverRace refunds the outstanding wagers of a race that was interrupted
// by a shutdown and clears it. Returns nil when the restored ledger held no
// race. No wager is ever lost to an interrupted process.
func (s *Store) RecoverRace() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelRace()
}

// TokenWinRate returns the lifetime win percentage (0-100) for a racer
// token, and false when the token has never raced.
func (s *Store) TokenWinRate(token string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.account(s.houseID).TokenStats[token]
	if rec == nil {
		return 0, false
	}
	return rec.WinRate()
}
