package service

import (
	"context"
	"time"

	"bubbler/events"
	"bubbler/ledger"
	"bubbler/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SnapshotExporter captures the ledger on a schedule, independent of the
// exports the services perform after each mutation.
type SnapshotExporter struct {
	r *recorder
}

func NewSnapshotExporter(store *ledger.Store, snapshots SnapshotStore) *SnapshotExporter {
	return &SnapshotExporter{r: newRecorder(store, snapshots, nil, nil)}
}

func (e *SnapshotExporter) Export() {
	e.r.exportSnapshot()
}

// recorder funnels every balance change through one place: the in-memory
// ledger has already been mutated, so history writes and snapshot exports
// must never fail the operation. Failures are logged and dropped.
type recorder struct {
	store     *ledger.Store
	snapshots SnapshotStore
	history   HistoryRecorder
	eventBus  EventPublisher
}

func newRecorder(store *ledger.Store, snapshots SnapshotStore, history HistoryRecorder, eventBus EventPublisher) *recorder {
	return &recorder{
		store:     store,
		snapshots: snapshots,
		history:   history,
		eventBus:  eventBus,
	}
}

// recordBalanceChange appends an audit entry and emits the change event.
func (r *recorder) recordBalanceChange(identity string, before, after int64, txType models.TransactionType, metadata map[string]any) {
	entry := &models.BalanceHistory{
		Identity:            identity,
		BalanceBefore:       before,
		BalanceAfter:        after,
		ChangeAmount:        after - before,
		TransactionType:     txType,
		TransactionMetadata: metadata,
	}

	if r.history != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.history.Record(ctx, entry); err != nil {
				log.WithFields(log.Fields{
					"identity":        identity,
					"transactionType": txType,
					"error":           err,
				}).Warn("Failed to record balance history")
			}
		}()
	}

	if r.eventBus != nil {
		r.eventBus.Publish(events.BalanceChangeEvent{
			Identity:        identity,
			OldBalance:      before,
			NewBalance:      after,
			TransactionType: txType,
			ChangeAmount:    after - before,
		})
	}
}

// recordRefill logs a house top-up when a settlement drove it negative.
func (r *recorder) recordRefill(injected int64) {
	if injected <= 0 {
		return
	}
	houseID := r.store.HouseID()
	house := r.store.Account(houseID)
	log.WithFields(log.Fields{
		"injected":   injected,
		"newBalance": house.Balance,
	}).Info("House balance refilled")
	r.recordBalanceChange(houseID, house.Balance-injected, house.Balance, models.TransactionTypeHouseRefill, nil)
	if r.eventBus != nil {
		r.eventBus.Publish(events.HouseRefilledEvent{
			Injected:   injected,
			NewBalance: house.Balance,
		})
	}
}

// exportSnapshot captures the full ledger and ships it to storage without
// blocking the caller.
func (r *recorder) exportSnapshot() {
	if r.snapshots == nil {
		return
	}
	snapshot := r.store.Snapshot()
	snapshot.ID = uuid.New().String()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.snapshots.Save(ctx, snapshot); err != nil {
			log.WithFields(log.Fields{
				"snapshotID": snapshot.ID,
				"accounts":   len(snapshot.Accounts),
				"error":      err,
			}).Warn("Failed to export ledger snapshot")
			return
		}
		log.WithFields(log.Fields{
			"snapshotID": snapshot.ID,
			"accounts":   len(snapshot.Accounts),
		}).Debug("Exported ledger snapshot")
	}()
}
