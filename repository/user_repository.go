package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamehall/database"
	"gamehall/domain/entities"
)

// UserRepository implements user data access
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

func newUserRepository(q Queryable) *UserRepository {
	return &UserRepository{q: q}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*entities.User, error) {
	query := `
		SELECT id, username, balance, banned, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.Banned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}

// GetOrCreate retrieves a user, provisioning one with the initial balance on
// first reference
func (r *UserRepository) GetOrCreate(ctx context.Context, userID int64, username string, initialBalance int64) (*entities.User, error) {
	query := `
		INSERT INTO users (id, username, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET updated_at = users.updated_at
		RETURNING id, username, balance, banned, created_at, updated_at
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID, username, initialBalance).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.Banned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user %d: %w", userID, err)
	}

	return &user, nil
}

// Debit atomically subtracts amount if the balance covers it. The balance
// condition lives in the write itself; nil means insufficient funds.
func (r *UserRepository) Debit(ctx context.Context, userID int64, amount int64) (*entities.User, error) {
	query := `
		UPDATE users
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING id, username, balance, banned, created_at, updated_at
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID, amount).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.Banned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit user %d: %w", userID, err)
	}

	return &user, nil
}

// Credit atomically adds amount to the user's balance
func (r *UserRepository) Credit(ctx context.Context, userID int64, amount int64) (*entities.User, error) {
	query := `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, username, balance, banned, created_at, updated_at
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID, amount).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.Banned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit user %d: %w", userID, err)
	}

	return &user, nil
}
