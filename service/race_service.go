package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"bubbler/config"
	"bubbler/events"
	"bubbler/ledger"
	"bubbler/models"

	log "github.com/sirupsen/logrus"
)

type raceService struct {
	store     *ledger.Store
	recorder  *recorder
	announcer Announcer
	rng       *rand.Rand
}

// NewRaceService creates a new race service
func NewRaceService(store *ledger.Store, snapshots SnapshotStore, history HistoryRecorder, eventBus EventPublisher, announcer Announcer, rng *rand.Rand) RaceService {
	return &raceService{
		store:     store,
		recorder:  newRecorder(store, snapshots, history, eventBus),
		announcer: announcer,
		rng:       rng,
	}
}

// CreateOrEnter opens a race at the given wager or joins the one currently
// forming. Rejections are deliberately silent: a race that is already
// running, a duplicate entry, an empty token pool or a balance that cannot
// cover the wager all leave the caller out without an error.
func (s *raceService) CreateOrEnter(ctx context.Context, identity string, wager int64) error {
	if s.store.Race() == nil {
		if wager < 1 {
			return nil
		}
		pool := make([]string, len(models.RacerTokens))
		copy(pool, models.RacerTokens)
		s.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		if err := s.store.StartRace(wager, pool); err != nil {
			// Lost the open to a concurrent entrant; fall through and join
			if err != ledger.ErrRaceInProgress {
				return fmt.Errorf("failed to open race: %w", err)
			}
		}
	}

	race := s.store.Race()
	if race == nil {
		return nil
	}

	before := s.store.Account(identity).Balance
	token, position, err := s.store.EnterRace(identity)
	if err != nil {
		switch err {
		case ledger.ErrNoActiveRace, ledger.ErrRaceInProgress, ledger.ErrRaceFull,
			ledger.ErrDuplicateEntry, ledger.ErrInsufficientFunds:
			return nil
		default:
			return fmt.Errorf("failed to enter race: %w", err)
		}
	}

	s.recorder.recordBalanceChange(identity, before, before-race.Wager, models.TransactionTypeRaceEntry, map[string]any{
		"token": token,
	})
	s.recorder.exportSnapshot()

	footer := fmt.Sprintf("%s Win Percentage: N/A", token)
	if rate, ok := s.store.TokenWinRate(token); ok {
		footer = fmt.Sprintf("%s Win Percentage: %.2f%%", token, rate)
	}
	s.announce(ctx, Announcement{
		Title:    "New Race Competitor",
		Body:     fmt.Sprintf("Watch out boys, %s's %s has joined the race.", identity, token),
		Identity: identity,
		Footer:   footer,
	})

	// The first entrant opens the entry window. The ordinal comes from
	// the store's lock, so concurrent entrants cannot all miss the slot.
	if position == 1 {
		cfg := config.Get()
		s.announce(ctx, Announcement{
			Title: "Race Starting Soon",
			Body: fmt.Sprintf("A race will start in %d seconds.\nCall race to enter with a bet of %d Scrubbing Bubbles.",
				int(cfg.RaceEntryWindow.Seconds()), race.Wager),
		})
		time.AfterFunc(cfg.RaceEntryWindow, func() {
			s.onEntryWindowExpired(identity)
		})
	}
	return nil
}

// onEntryWindowExpired closes entries and either cancels a lonely race or
// runs it to completion. It executes on the timer goroutine and performs the
// whole animation and settlement before returning.
func (s *raceService) onEntryWindowExpired(opener string) {
	ctx := context.Background()
	race := s.store.Race()
	if race == nil {
		return
	}

	if len(race.Entrants) < 2 {
		s.cancelRace(ctx, opener)
		return
	}

	active, err := s.store.ActivateRace()
	if err != nil {
		log.WithField("error", err).Error("Failed to activate race")
		return
	}
	// Persist the active race so a crash mid-animation refunds on restart
	s.recorder.exportSnapshot()

	sim := simulateRace(active.Entrants, s.rng)
	s.runAnimation(ctx, active, sim)
	s.settle(ctx, active, sim)
}

func (s *raceService) cancelRace(ctx context.Context, opener string) {
	race := s.store.Race()
	refunds := s.store.CancelRace()
	for identity, amount := range refunds {
		balance := s.store.Account(identity).Balance
		s.recorder.recordBalanceChange(identity, balance-amount, balance, models.TransactionTypeRaceRefund, nil)
	}
	s.recorder.exportSnapshot()

	token := ""
	if race != nil {
		for _, e := range race.Entrants {
			if e.Identity == opener {
				token = e.Token
			}
		}
	}
	s.announce(ctx, Announcement{
		Title: "Race Cancelled",
		Body:  fmt.Sprintf("Sorry %s, looks like everybody is too 🐔 to challenge your %s", opener, token),
	})
}

func (s *raceService) runAnimation(ctx context.Context, race *models.Race, sim *raceSimulation) {
	cfg := config.Get()
	time.Sleep(cfg.RaceStartDelay)
	for i, frame := range sim.Frames {
		s.announce(ctx, Announcement{
			Title: "🏁 Race",
			Body:  frame.Render(race.Entrants),
		})
		if i < len(sim.Frames)-1 {
			time.Sleep(cfg.RaceFrameDelay)
		}
	}
}

func (s *raceService) settle(ctx context.Context, race *models.Race, sim *raceSimulation) {
	cfg := config.Get()
	winner := race.Entrants[sim.Winner]

	multiplier := cfg.SmallRaceMultiplier
	if len(race.Entrants) >= cfg.LargeRaceSize {
		multiplier = cfg.LargeRaceMultiplier
	}
	payout := int64(math.Floor(float64(race.Wager) * multiplier))

	var bonus int64
	bonusMsg := ""
	if s.rng.Intn(cfg.BonusOdds) == 0 {
		if bonus = s.rollBonus(race.Wager); bonus > 0 {
			bonusMsg = fmt.Sprintf("\n\nThe RNG Gods have blessed you with an additional %d Scrubbing Bubbles from the house!", bonus)
		}
	}

	before := s.store.Account(winner.Identity).Balance
	settlement, err := s.store.SettleRace(winner, payout, bonus)
	if err != nil {
		log.WithFields(log.Fields{
			"winner": winner.Identity,
			"error":  err,
		}).Error("Failed to settle race")
		return
	}

	s.recorder.recordBalanceChange(winner.Identity, before, before+payout, models.TransactionTypeRaceWin, map[string]any{
		"token":  winner.Token,
		"racers": settlement.Result.RacerCount,
	})
	if bonus > 0 {
		s.recorder.recordBalanceChange(winner.Identity, before+payout, before+payout+bonus, models.TransactionTypeRaceBonus, nil)
	}
	s.recorder.recordRefill(settlement.HouseRefill)

	if s.recorder.eventBus != nil {
		s.recorder.eventBus.Publish(events.RaceFinishedEvent{
			Winner:     winner.Identity,
			Token:      winner.Token,
			Wager:      settlement.Result.Wager,
			Payout:     payout,
			Bonus:      bonus,
			RacerCount: settlement.Result.RacerCount,
		})
	}
	s.recorder.exportSnapshot()

	s.announce(ctx, Announcement{
		Title: "🏁 Race Finished",
		Body: fmt.Sprintf("🎊 %s 🎊    %s is the winner mon!%s\n\nYour army has grown by %d Scrubbing Bubbles!",
			winner.Token, winner.Identity, bonusMsg, payout+bonus-settlement.Result.Wager),
		Identity: winner.Identity,
	})
}

// rollBonus draws the winner's surprise extra, capped by a multiple of the
// wager and by whatever the house currently holds. A broke house pays no
// bonus at all.
func (s *raceService) rollBonus(wager int64) int64 {
	cfg := config.Get()
	max := wager * cfg.BonusCapMultiplier
	if houseBalance := s.store.Account(s.store.HouseID()).Balance; max > houseBalance {
		max = houseBalance
	}
	if max <= 0 {
		return 0
	}
	if max == 1 {
		return 1
	}
	return 1 + s.rng.Int63n(max-1)
}

// RecoverUnfinishedRace refunds every entrant of a race that was cut short
// by a restart. Called once during startup, after the snapshot is restored.
func (s *raceService) RecoverUnfinishedRace(ctx context.Context) error {
	refunds := s.store.RecoverRace()
	if refunds == nil {
		return nil
	}
	for identity, amount := range refunds {
		balance := s.store.Account(identity).Balance
		s.recorder.recordBalanceChange(identity, balance-amount, balance, models.TransactionTypeRaceRefund, nil)
		log.WithFields(log.Fields{
			"identity": identity,
			"refund":   amount,
		}).Info("Refunded unfinished race entry")
	}
	s.recorder.exportSnapshot()
	return nil
}

func (s *raceService) announce(ctx context.Context, a Announcement) {
	if s.announcer != nil {
		s.announcer.Announce(ctx, a)
	}
}
