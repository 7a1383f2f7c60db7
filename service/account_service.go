package service

import (
	"context"
	"fmt"
	"time"

	"bubbler/config"
	"bubbler/ledger"
	"bubbler/models"
)

type accountService struct {
	store    *ledger.Store
	recorder *recorder
}

// NewAccountService creates a new account service
func NewAccountService(store *ledger.Store, snapshots SnapshotStore, history HistoryRecorder, eventBus EventPublisher) AccountService {
	return &accountService{
		store:    store,
		recorder: newRecorder(store, snapshots, history, eventBus),
	}
}

func (s *accountService) GetAccount(ctx context.Context, identity string) (*models.Account, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity is required")
	}
	return s.store.Account(identity), nil
}

func (s *accountService) Credit(ctx context.Context, identity string, amount int64, txType models.TransactionType) (int64, error) {
	before := s.store.Account(identity).Balance
	if err := s.store.Credit(identity, amount); err != nil {
		return 0, fmt.Errorf("failed to credit %s: %w", identity, err)
	}
	after := before + amount

	s.recorder.recordBalanceChange(identity, before, after, txType, nil)
	s.recorder.exportSnapshot()
	return after, nil
}

func (s *accountService) Debit(ctx context.Context, identity string, amount int64, txType models.TransactionType) (int64, error) {
	before := s.store.Account(identity).Balance
	if err := s.store.Debit(identity, amount); err != nil {
		return 0, fmt.Errorf("failed to debit %s: %w", identity, err)
	}
	after := before - amount

	s.recorder.recordBalanceChange(identity, before, after, txType, nil)
	s.recorder.exportSnapshot()
	return after, nil
}

func (s *accountService) Transfer(ctx context.Context, from, to string, amount int64) (*models.TransferResult, error) {
	if from == to {
		return nil, fmt.Errorf("cannot transfer to the same account")
	}

	fromBefore := s.store.Account(from).Balance
	toBefore := s.store.Account(to).Balance
	if err := s.store.Transfer(from, to, amount); err != nil {
		return nil, fmt.Errorf("failed to transfer from %s to %s: %w", from, to, err)
	}

	s.recorder.recordBalanceChange(from, fromBefore, fromBefore-amount, models.TransactionTypeTransferOut, map[string]any{
		"recipient": to,
	})
	s.recorder.recordBalanceChange(to, toBefore, toBefore+amount, models.TransactionTypeTransferIn, map[string]any{
		"sender": from,
	})
	s.recorder.exportSnapshot()

	return &models.TransferResult{
		Amount:     amount,
		Recipient:  to,
		NewBalance: fromBefore - amount,
	}, nil
}

func (s *accountService) Leader(ctx context.Context) (string, int64, bool) {
	return s.store.Leader()
}

func (s *accountService) ClaimDaily(ctx context.Context, identity string) (int64, error) {
	cfg := config.Get()

	before := s.store.Account(identity).Balance
	if err := s.store.ClaimDaily(identity, cfg.DailyClaimAmount, time.Now()); err != nil {
		if err == ledger.ErrAlreadyClaimedToday {
			return 0, err
		}
		return 0, fmt.Errorf("failed to claim daily reserve: %w", err)
	}
	after := before + cfg.DailyClaimAmount

	s.recorder.recordBalanceChange(identity, before, after, models.TransactionTypeDailyClaim, nil)
	s.recorder.exportSnapshot()
	return after, nil
}
