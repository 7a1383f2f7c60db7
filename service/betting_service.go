package service

import (
	"context"
	"fmt"
	"math/rand"

	"bubbler/events"
	"bubbler/ledger"
	"bubbler/models"
)

// OutcomeFunc decides a bet: whether it won and the payout multiplier.
type OutcomeFunc func() (won bool, multiplier float64)

type bettingService struct {
	store    *ledger.Store
	recorder *recorder
	rng      *rand.Rand
}

// NewBettingService creates a new betting service. The RNG is injected so
// outcomes are reproducible in tests.
func NewBettingService(store *ledger.Store, snapshots SnapshotStore, history HistoryRecorder, eventBus EventPublisher, rng *rand.Rand) BettingService {
	return &bettingService{
		store:    store,
		recorder: newRecorder(store, snapshots, history, eventBus),
		rng:      rng,
	}
}

func (s *bettingService) PlayClean(ctx context.Context, identity string, amount int64) (*models.BetResult, error) {
	// Even odds, double or nothing
	outcome := func() (bool, float64) {
		return s.rng.Intn(2) == 0, 2.0
	}
	return s.runBet(ctx, identity, amount, models.BetKindClean, outcome)
}

// runBet is the shared settlement engine: escrow the wager, decide the
// outcome, settle against the house. The wager is cleared whatever happens.
func (s *bettingService) runBet(ctx context.Context, identity string, amount int64, kind models.BetKind, outcome OutcomeFunc) (*models.BetResult, error) {
	before := s.store.Account(identity).Balance

	if err := s.store.PlaceWager(identity, amount, kind); err != nil {
		return nil, fmt.Errorf("failed to place wager: %w", err)
	}

	won, multiplier := outcome()
	var payout int64
	if won {
		payout = int64(float64(amount) * multiplier)
	}

	settlement, err := s.store.SettleWager(identity, kind, won, payout)
	if err != nil {
		return nil, fmt.Errorf("failed to settle wager: %w", err)
	}

	txType := models.TransactionTypeBetLoss
	if won {
		txType = models.TransactionTypeBetWin
	}
	s.recorder.recordBalanceChange(identity, before, settlement.Result.NewBalance, txType, map[string]any{
		"wager": amount,
		"won":   won,
	})
	s.recorder.recordRefill(settlement.HouseRefill)

	if s.recorder.eventBus != nil {
		s.recorder.eventBus.Publish(events.BetSettledEvent{
			Identity: identity,
			Wager:    amount,
			Won:      won,
			Payout:   payout,
		})
	}
	s.recorder.exportSnapshot()

	return &settlement.Result, nil
}
