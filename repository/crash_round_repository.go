package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gamehall/database"
	"gamehall/domain/entities"
)

const crashRoundColumns = `id, crash_point, status, created_at, started_at, crashed_at`

// CrashRoundRepository implements crash round data access
type CrashRoundRepository struct {
	q Queryable
}

// NewCrashRoundRepository creates a new crash round repository
func NewCrashRoundRepository(db *database.DB) *CrashRoundRepository {
	return &CrashRoundRepository{q: db.Pool}
}

func newCrashRoundRepository(q Queryable) *CrashRoundRepository {
	return &CrashRoundRepository{q: q}
}

// Create persists a new waiting round with its hidden crash point. A partial
// unique index allows only one non-crashed round; losing the insert race
// returns nil.
func (r *CrashRoundRepository) Create(ctx context.Context, crashPoint float64) (*entities.CrashRound, error) {
	query := fmt.Sprintf(`
		INSERT INTO crash_rounds (crash_point, status)
		VALUES ($1, 'waiting')
		ON CONFLICT DO NOTHING
		RETURNING %s
	`, crashRoundColumns)

	round, err := scanCrashRound(r.q.QueryRow(ctx, query, crashPoint))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create crash round: %w", err)
	}
	return round, nil
}

// GetLatest returns the newest round, nil if none exists
func (r *CrashRoundRepository) GetLatest(ctx context.Context) (*entities.CrashRound, error) {
	query := fmt.Sprintf(`SELECT %s FROM crash_rounds ORDER BY id DESC LIMIT 1`, crashRoundColumns)

	round, err := scanCrashRound(r.q.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest crash round: %w", err)
	}
	return round, nil
}

// GetByID retrieves a round by its ID
func (r *CrashRoundRepository) GetByID(ctx context.Context, id int64) (*entities.CrashRound, error) {
	query := fmt.Sprintf(`SELECT %s FROM crash_rounds WHERE id = $1`, crashRoundColumns)

	round, err := scanCrashRound(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crash round %d: %w", id, err)
	}
	return round, nil
}

// Start transitions waiting -> running, stamping the authoritative start time
func (r *CrashRoundRepository) Start(ctx context.Context, id int64, startedAt time.Time) (*entities.CrashRound, error) {
	query := fmt.Sprintf(`
		UPDATE crash_rounds
		SET status = 'running', started_at = $2
		WHERE id = $1 AND status = 'waiting'
		RETURNING %s
	`, crashRoundColumns)

	round, err := scanCrashRound(r.q.QueryRow(ctx, query, id, startedAt))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start crash round %d: %w", id, err)
	}
	return round, nil
}

// MarkCrashed transitions running -> crashed. Later readers observe crashed
// and do not re-transition.
func (r *CrashRoundRepository) MarkCrashed(ctx context.Context, id int64, at time.Time) (*entities.CrashRound, error) {
	query := fmt.Sprintf(`
		UPDATE crash_rounds
		SET status = 'crashed', crashed_at = $2
		WHERE id = $1 AND status = 'running'
		RETURNING %s
	`, crashRoundColumns)

	round, err := scanCrashRound(r.q.QueryRow(ctx, query, id, at))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark crash round %d crashed: %w", id, err)
	}
	return round, nil
}

func scanCrashRound(row pgx.Row) (*entities.CrashRound, error) {
	var r entities.CrashRound
	err := row.Scan(
		&r.ID,
		&r.CrashPoint,
		&r.Status,
		&r.CreatedAt,
		&r.StartedAt,
		&r.CrashedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
