package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bubbler/database"
	"bubbler/models"

	"github.com/jackc/pgx/v5"
)

// snapshotsToKeep bounds the retained history; older rows are pruned as new
// snapshots arrive.
const snapshotsToKeep = 20

// SnapshotRepository persists whole-ledger snapshots as single JSON
// documents. The newest row is the restore point after a restart.
type SnapshotRepository struct {
	db *database.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save inserts the snapshot and prunes rows beyond the retention window,
// both inside one transaction.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *models.LedgerSnapshot) error {
	state, err := json.Marshal(snapshot.Accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot state: %w", err)
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO ledger_snapshots (id, state, created_at)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.Exec(ctx, insert, snapshot.ID, state, snapshot.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert snapshot %s: %w", snapshot.ID, err)
		}

		prune := `
			DELETE FROM ledger_snapshots
			WHERE id NOT IN (
				SELECT id FROM ledger_snapshots
				ORDER BY created_at DESC
				LIMIT $1
			)
		`
		if _, err := tx.Exec(ctx, prune, snapshotsToKeep); err != nil {
			return fmt.Errorf("failed to prune old snapshots: %w", err)
		}
		return nil
	})
}

// Load returns the most recent snapshot, or nil if none has been saved.
func (r *SnapshotRepository) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	query := `
		SELECT id, state, created_at
		FROM ledger_snapshots
		ORDER BY created_at DESC
		LIMIT 1
	`

	var snapshot models.LedgerSnapshot
	var state []byte
	err := r.db.QueryRow(ctx, query).Scan(&snapshot.ID, &state, &snapshot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	if err := json.Unmarshal(state, &snapshot.Accounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", snapshot.ID, err)
	}
	return &snapshot, nil
}
