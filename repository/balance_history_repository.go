package repository

import (
	"context"
	"fmt"

	"gamehall/database"
	"gamehall/domain/entities"
)

// BalanceHistoryRepository implements the immutable ledger record store
type BalanceHistoryRepository struct {
	q Queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

func newBalanceHistoryRepository(q Queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: q}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	query := `
		INSERT INTO balance_history (
			user_id, balance_before, balance_after, change_amount,
			transaction_type, transaction_metadata, related_id, related_type
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		history.UserID,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		history.TransactionMetadata,
		history.RelatedID,
		history.RelatedType,
	).Scan(&history.ID, &history.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	return nil
}

// GetByUser returns balance history for a specific user, newest first
func (r *BalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, user_id, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, related_id, related_type, created_at
		FROM balance_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []*entities.BalanceHistory
	for rows.Next() {
		var h entities.BalanceHistory
		err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.BalanceBefore,
			&h.BalanceAfter,
			&h.ChangeAmount,
			&h.TransactionType,
			&h.TransactionMetadata,
			&h.RelatedID,
			&h.RelatedType,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		entries = append(entries, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return entries, nil
}

// NetMovementForRelated sums all balance changes recorded against an entity
func (r *BalanceHistoryRepository) NetMovementForRelated(ctx context.Context, relatedType entities.RelatedType, relatedID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(change_amount), 0)
		FROM balance_history
		WHERE related_type = $1 AND related_id = $2
	`

	var net int64
	if err := r.q.QueryRow(ctx, query, relatedType, relatedID).Scan(&net); err != nil {
		return 0, fmt.Errorf("failed to sum movement for %s %s: %w", relatedType, relatedID, err)
	}

	return net, nil
}
