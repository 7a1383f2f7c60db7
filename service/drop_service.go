package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"bubbler/config"
	"bubbler/events"
	"bubbler/ledger"
	"bubbler/models"

	log "github.com/sirupsen/logrus"
)

// theftLock names the re-entrancy guard for the temporary theft event.
const theftLock = "theft"

type dropService struct {
	store     *ledger.Store
	recorder  *recorder
	announcer Announcer
	rng       *rand.Rand

	mu       sync.Mutex
	prevRoll int // last roll that produced a drop; a repeat pays out big
}

// NewDropService creates a new drop service
func NewDropService(store *ledger.Store, snapshots SnapshotStore, history HistoryRecorder, eventBus EventPublisher, announcer Announcer, rng *rand.Rand) DropService {
	return &dropService{
		store:     store,
		recorder:  newRecorder(store, snapshots, history, eventBus),
		announcer: announcer,
		rng:       rng,
	}
}

// MaybeDischarge rolls for a periodic drop: 40% of rolls spill a single
// bubble, and a roll that repeats the previous dropping roll spills a pile
// of up to sixty.
func (s *dropService) MaybeDischarge(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roll := s.rng.Intn(10) + 1
	if roll <= 6 {
		return
	}

	count := int64(1)
	if roll == s.prevRoll {
		count = int64(s.rng.Intn(60)) + 1
	}
	s.prevRoll = roll

	if err := s.store.AddDrop(count); err != nil {
		return
	}
	s.announceDrop(ctx, count, "")
}

// Discharge spills bubbles from an identity's own balance onto the floor.
func (s *dropService) Discharge(ctx context.Context, identity string, count int64) error {
	before := s.store.Account(identity).Balance
	if err := s.store.DischargeFrom(identity, count); err != nil {
		return fmt.Errorf("failed to discharge: %w", err)
	}

	s.recorder.recordBalanceChange(identity, before, before-count, models.TransactionTypeDropDischarge, nil)
	s.recorder.exportSnapshot()
	s.announceDrop(ctx, count, identity)
	return nil
}

func (s *dropService) announceDrop(ctx context.Context, count int64, identity string) {
	cfg := config.Get()
	pending := s.store.Dropped()

	img := pending
	grammar := "Bubble\nhas"
	if pending > 1 {
		grammar = "Bubbles\nhave"
		if pending > cfg.DropDisplayCap {
			img = cfg.DropDisplayCap
		}
	}

	if s.recorder.eventBus != nil {
		s.recorder.eventBus.Publish(events.DropChargedEvent{
			Count:   count,
			Pending: pending,
		})
	}

	image := ""
	if cfg.AssetBaseURL != "" {
		image = fmt.Sprintf("%s/bubbles/%d.png", cfg.AssetBaseURL, img)
	}
	s.announce(ctx, Announcement{
		Title:    fmt.Sprintf("**%d Scrubbing %s arrived for duty!**", pending, grammar),
		Identity: identity,
		Image:    image,
	})
}

// Claim awards every pending dropped bubble to the identity.
func (s *dropService) Claim(ctx context.Context, identity string) (int64, error) {
	before := s.store.Account(identity).Balance
	claimed := s.store.ClaimDrops(identity)
	if claimed == 0 {
		return 0, nil
	}

	s.recorder.recordBalanceChange(identity, before, before+claimed, models.TransactionTypeDropClaim, nil)
	s.recorder.exportSnapshot()
	s.announce(ctx, Announcement{
		Title:    "Enlisted",
		Body:     fmt.Sprintf("%s's army has grown by %d Scrubbing Bubbles!", identity, claimed),
		Identity: identity,
	})
	return claimed, nil
}

// Redistribute spreads the pool across every other account once it has
// accumulated enough.
func (s *dropService) Redistribute(ctx context.Context) error {
	cfg := config.Get()
	share, recipients := s.store.RedistributePool(cfg.RedistributionDivisor, cfg.RedistributionFloor)
	if recipients == 0 {
		return nil
	}

	log.WithFields(log.Fields{
		"share":      share,
		"recipients": recipients,
	}).Info("Redistributed pool wealth")
	for _, identity := range s.store.Identities() {
		if identity == s.store.PoolID() {
			continue
		}
		balance := s.store.Account(identity).Balance
		s.recorder.recordBalanceChange(identity, balance-share, balance, models.TransactionTypeRedistribution, nil)
	}
	s.recorder.exportSnapshot()
	s.announce(ctx, Announcement{
		Title: "Wealth Redistributed",
		Body:  fmt.Sprintf("Every army has grown by %d Scrubbing Bubbles!", share),
	})
	return nil
}

// TemporaryTheft seizes a third of every balance into the pool, then gives
// it all back after the configured delay. The named lock stops a second
// theft from starting while one is outstanding.
func (s *dropService) TemporaryTheft(ctx context.Context) error {
	if err := s.store.TryLock(theftLock); err != nil {
		return err
	}

	seized := s.store.SeizeThirds()
	if len(seized) == 0 {
		s.store.Unlock(theftLock)
		return nil
	}

	for identity, amount := range seized {
		balance := s.store.Account(identity).Balance
		s.recorder.recordBalanceChange(identity, balance+amount, balance, models.TransactionTypeTheftOut, nil)
	}
	s.recorder.exportSnapshot()
	s.announce(ctx, Announcement{
		Title: "Armies Seized",
		Body:  "A mysterious force has made off with a third of every army...",
	})

	time.AfterFunc(config.Get().TheftReturnDelay, func() {
		s.store.ReturnSeized(seized)
		s.store.Unlock(theftLock)

		for identity, amount := range seized {
			balance := s.store.Account(identity).Balance
			s.recorder.recordBalanceChange(identity, balance-amount, balance, models.TransactionTypeTheftReturn, nil)
		}
		s.recorder.exportSnapshot()
		s.announce(context.Background(), Announcement{
			Title: "Armies Returned",
			Body:  "The stolen Scrubbing Bubbles have marched home.",
		})
	})
	return nil
}

// Steal moves amount from the victim to the thief. A victim who cannot
// cover the amount is left untouched, silently.
func (s *dropService) Steal(ctx context.Context, thief, victim string, amount int64) error {
	thiefBefore := s.store.Account(thief).Balance
	victimBefore := s.store.Account(victim).Balance
	if err := s.store.Steal(thief, victim, amount); err != nil {
		if err == ledger.ErrInsufficientFunds {
			return nil
		}
		return fmt.Errorf("failed to steal: %w", err)
	}

	s.recorder.recordBalanceChange(victim, victimBefore, victimBefore-amount, models.TransactionTypeStealOut, map[string]any{
		"thief": thief,
	})
	s.recorder.recordBalanceChange(thief, thiefBefore, thiefBefore+amount, models.TransactionTypeStealIn, map[string]any{
		"victim": victim,
	})
	s.recorder.exportSnapshot()
	return nil
}

func (s *dropService) announce(ctx context.Context, a Announcement) {
	if s.announcer != nil {
		s.announcer.Announce(ctx, a)
	}
}
