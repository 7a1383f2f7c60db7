package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bubbler/database"
	"bubbler/models"

	"github.com/jackc/pgx/v5"
)

// BalanceHistoryRepository records every balance change as an append-only
// audit trail alongside the snapshots.
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(identity, balance_before, balance_after, change_amount, transaction_type, transaction_metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.Identity,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		metadataJSON,
	).Scan(&history.ID, &history.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record balance history for %s: %w", history.Identity, err)
	}
	return nil
}

// GetByIdentity returns balance history for a specific account
func (r *BalanceHistoryRepository) GetByIdentity(ctx context.Context, identity string, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, identity, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE identity = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s: %w", identity, err)
	}
	defer rows.Close()

	return scanHistories(rows)
}

// GetByDateRange returns balance history within a date range
func (r *BalanceHistoryRepository) GetByDateRange(ctx context.Context, identity string, from, to time.Time) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, identity, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE identity = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, identity, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s in date range: %w", identity, err)
	}
	defer rows.Close()

	return scanHistories(rows)
}

func scanHistories(rows pgx.Rows) ([]*models.BalanceHistory, error) {
	var histories []*models.BalanceHistory
	for rows.Next() {
		var history models.BalanceHistory
		var metadataJSON []byte

		err := rows.Scan(
			&history.ID,
			&history.Identity,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&history.TransactionType,
			&metadataJSON,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}
	return histories, nil
}
