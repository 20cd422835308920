package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gamehall/domain/entities"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, userID int64) (*entities.User, error)

	// GetOrCreate retrieves a user, provisioning one with the initial balance
	// on first reference
	GetOrCreate(ctx context.Context, userID int64, username string, initialBalance int64) (*entities.User, error)

	// Debit atomically subtracts amount if the balance covers it. Returns the
	// updated user, or nil when the balance was insufficient.
	Debit(ctx context.Context, userID int64, amount int64) (*entities.User, error)

	// Credit atomically adds amount and returns the updated user
	Credit(ctx context.Context, userID int64, amount int64) (*entities.User, error)
}

// BalanceHistoryRepository defines the interface for the immutable ledger records
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *entities.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error)

	// NetMovementForRelated sums all balance changes recorded against a
	// related entity. Used by settlement audits.
	NetMovementForRelated(ctx context.Context, relatedType entities.RelatedType, relatedID string) (int64, error)
}

// SessionRepository defines data access for duel sessions. Every state-
// changing method is a guarded transition: a conditional write that returns
// the affected row, or nil when another caller already performed it.
type SessionRepository interface {
	// Create persists a new pending session with its participants
	Create(ctx context.Context, session *entities.Session, participants []*entities.Participant) error

	// GetByID retrieves a session by ID, nil if not found
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Session, error)

	// GetParticipants returns both participant rows for a session
	GetParticipants(ctx context.Context, id uuid.UUID) ([]*entities.Participant, error)

	// GetOpenByUser returns non-terminal sessions involving the user
	GetOpenByUser(ctx context.Context, userID int64) ([]*entities.Session, error)

	// GetExpiredPending returns pending sessions whose deadline has passed
	GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entities.Session, error)

	// Accept transitions pending -> accepted
	Accept(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error)

	// Start transitions accepted -> playing, guarded on started_at being unset
	Start(ctx context.Context, id uuid.UUID, startedAt time.Time) (*entities.Session, error)

	// MarkRevealing transitions playing -> revealing
	MarkRevealing(ctx context.Context, id uuid.UUID) (*entities.Session, error)

	// Complete transitions from the given prior status to completed,
	// recording the winner (nil for a tie)
	Complete(ctx context.Context, id uuid.UUID, from entities.SessionStatus, winnerID *int64, at time.Time) (*entities.Session, error)

	// Cancel transitions pending -> cancelled
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error)

	// Expire transitions pending -> expired
	Expire(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error)

	// SetReady sets the participant's ready flag and returns the freshly
	// written row together with the other side's committed ready flag
	SetReady(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.Participant, bool, error)

	// RecordMove writes the participant's move, guarded on no move existing,
	// and reports whether the opponent's move has already committed. A nil
	// participant means a move was already recorded.
	RecordMove(ctx context.Context, sessionID uuid.UUID, userID int64, move string) (*entities.Participant, bool, error)

	// SetStakeContributed records how much of the stake the participant has paid in
	SetStakeContributed(ctx context.Context, sessionID uuid.UUID, userID int64, amount int64) error

	// SetSettlement records the amount paid out to the participant
	SetSettlement(ctx context.Context, sessionID uuid.UUID, userID int64, amount int64) error
}

// CrashRoundRepository defines data access for crash rounds
type CrashRoundRepository interface {
	// Create persists a new waiting round with its hidden crash point
	Create(ctx context.Context, crashPoint float64) (*entities.CrashRound, error)

	// GetLatest returns the newest round, nil if none exists
	GetLatest(ctx context.Context) (*entities.CrashRound, error)

	// GetByID retrieves a round by ID, nil if not found
	GetByID(ctx context.Context, id int64) (*entities.CrashRound, error)

	// Start transitions waiting -> running, stamping startedAt
	Start(ctx context.Context, id int64, startedAt time.Time) (*entities.CrashRound, error)

	// MarkCrashed transitions running -> crashed
	MarkCrashed(ctx context.Context, id int64, at time.Time) (*entities.CrashRound, error)
}

// CrashBetRepository defines data access for crash bets
type CrashBetRepository interface {
	// Place inserts a bet, returning false when the user already has one in
	// the round (unique-insert guard)
	Place(ctx context.Context, bet *entities.CrashBet) (bool, error)

	// GetByRoundAndUser retrieves a bet, nil if not found
	GetByRoundAndUser(ctx context.Context, roundID, userID int64) (*entities.CrashBet, error)

	// GetByRound returns all bets in a round
	GetByRound(ctx context.Context, roundID int64) ([]*entities.CrashBet, error)

	// CashOut records the cash-out, guarded on none existing. Returns nil
	// when the bet was already cashed out or swept.
	CashOut(ctx context.Context, roundID, userID int64, multiplier float64, profit int64, at time.Time) (*entities.CrashBet, error)

	// SweepLosses settles every un-cashed bet in the round to profit = -stake
	// in one batch. Returns the swept bets.
	SweepLosses(ctx context.Context, roundID int64, at time.Time) ([]*entities.CrashBet, error)
}
