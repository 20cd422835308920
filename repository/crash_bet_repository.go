package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gamehall/database"
	"gamehall/domain/entities"
)

const crashBetColumns = `round_id, user_id, stake, cash_out_multiplier, profit, created_at, settled_at`

// CrashBetRepository implements crash bet data access
type CrashBetRepository struct {
	q Queryable
}

// NewCrashBetRepository creates a new crash bet repository
func NewCrashBetRepository(db *database.DB) *CrashBetRepository {
	return &CrashBetRepository{q: db.Pool}
}

func newCrashBetRepository(q Queryable) *CrashBetRepository {
	return &CrashBetRepository{q: q}
}

// Place inserts a bet behind two guards: the WHERE EXISTS admits the row only
// while the round is still waiting, and the primary key refuses a second bet
// per user. false means one of the guards refused the insert.
func (r *CrashBetRepository) Place(ctx context.Context, bet *entities.CrashBet) (bool, error) {
	query := `
		INSERT INTO crash_bets (round_id, user_id, stake)
		SELECT $1, $2, $3
		WHERE EXISTS (
			SELECT 1 FROM crash_rounds WHERE id = $1 AND status = 'waiting'
		)
		ON CONFLICT (round_id, user_id) DO NOTHING
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query, bet.RoundID, bet.UserID, bet.Stake).Scan(&bet.CreatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to place bet for %d in round %d: %w", bet.UserID, bet.RoundID, err)
	}

	return true, nil
}

// GetByRoundAndUser retrieves a bet, nil if not found
func (r *CrashBetRepository) GetByRoundAndUser(ctx context.Context, roundID, userID int64) (*entities.CrashBet, error) {
	query := fmt.Sprintf(`SELECT %s FROM crash_bets WHERE round_id = $1 AND user_id = $2`, crashBetColumns)

	bet, err := scanCrashBet(r.q.QueryRow(ctx, query, roundID, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet for %d in round %d: %w", userID, roundID, err)
	}
	return bet, nil
}

// GetByRound returns all bets in a round
func (r *CrashBetRepository) GetByRound(ctx context.Context, roundID int64) ([]*entities.CrashBet, error) {
	query := fmt.Sprintf(`SELECT %s FROM crash_bets WHERE round_id = $1 ORDER BY created_at`, crashBetColumns)

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets for round %d: %w", roundID, err)
	}
	defer rows.Close()

	var bets []*entities.CrashBet
	for rows.Next() {
		bet, err := scanCrashBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}

	return bets, nil
}

// CashOut records the cash-out. The IS NULL conditions make the settlement
// write-once: nil means the bet was already cashed out or swept.
func (r *CrashBetRepository) CashOut(ctx context.Context, roundID, userID int64, multiplier float64, profit int64, at time.Time) (*entities.CrashBet, error) {
	query := fmt.Sprintf(`
		UPDATE crash_bets
		SET cash_out_multiplier = $3, profit = $4, settled_at = $5
		WHERE round_id = $1 AND user_id = $2
		  AND cash_out_multiplier IS NULL AND profit IS NULL
		RETURNING %s
	`, crashBetColumns)

	bet, err := scanCrashBet(r.q.QueryRow(ctx, query, roundID, userID, multiplier, profit, at))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cash out bet for %d in round %d: %w", userID, roundID, err)
	}
	return bet, nil
}

// SweepLosses settles every un-cashed bet in the round in one guarded batch
func (r *CrashBetRepository) SweepLosses(ctx context.Context, roundID int64, at time.Time) ([]*entities.CrashBet, error) {
	query := fmt.Sprintf(`
		UPDATE crash_bets
		SET profit = -stake, settled_at = $2
		WHERE round_id = $1
		  AND cash_out_multiplier IS NULL AND profit IS NULL
		RETURNING %s
	`, crashBetColumns)

	rows, err := r.q.Query(ctx, query, roundID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep losses for round %d: %w", roundID, err)
	}
	defer rows.Close()

	var bets []*entities.CrashBet
	for rows.Next() {
		bet, err := scanCrashBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swept bet: %w", err)
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate swept bets: %w", err)
	}

	return bets, nil
}

func scanCrashBet(row pgx.Row) (*entities.CrashBet, error) {
	var b entities.CrashBet
	err := row.Scan(
		&b.RoundID,
		&b.UserID,
		&b.Stake,
		&b.CashOutMultiplier,
		&b.Profit,
		&b.CreatedAt,
		&b.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
