package interfaces

import (
	"context"

	"github.com/google/uuid"

	"gamehall/domain/entities"
)

// Ledger moves balances and records the paired immutable transaction row.
// Implementations must run inside the caller's transaction so a ledger
// failure rolls back the guarded transition that invoked it.
type Ledger interface {
	// Debit subtracts amount from the user's balance and records it. Fails
	// with an eligibility error when the balance is insufficient.
	Debit(ctx context.Context, userID, amount int64, txType entities.TransactionType, relatedType entities.RelatedType, relatedID string, metadata map[string]any) error

	// Credit adds amount to the user's balance and records it
	Credit(ctx context.Context, userID, amount int64, txType entities.TransactionType, relatedType entities.RelatedType, relatedID string, metadata map[string]any) error
}

// Eligibility answers whether a user may enter stake-bearing games
type Eligibility interface {
	// CheckEligible fails with an eligibility error when the user does not
	// exist or is banned
	CheckEligible(ctx context.Context, userID int64) (*entities.User, error)
}

// DuelService coordinates duel sessions of every kind
type DuelService interface {
	// Propose creates a pending session between initiator and opponent
	Propose(ctx context.Context, initiatorID, opponentID int64, kind entities.GameKind, stake int64) (*entities.Session, error)

	// Accept commits the responder; instant-resolve kinds settle in the same step
	Accept(ctx context.Context, sessionID uuid.UUID, responderID int64) (*entities.SessionState, error)

	// Cancel withdraws a still-pending proposal
	Cancel(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.Session, error)

	// SetReady flags the participant ready and starts the duel when both are
	SetReady(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.SessionState, error)

	// SubmitMove records a write-once move; the deciding move settles the session
	SubmitMove(ctx context.Context, sessionID uuid.UUID, userID int64, move string) (*entities.SessionState, error)

	// GetState returns the session read model for the viewer, performing any
	// transitions the stored timestamps already imply
	GetState(ctx context.Context, sessionID uuid.UUID, viewerID int64) (*entities.SessionState, error)

	// ListOpen returns the user's non-terminal sessions, newest first
	ListOpen(ctx context.Context, userID int64) ([]*entities.Session, error)

	// SweepExpired pulls lapsed pending sessions into expired, refunding
	// pre-debited stakes. Returns how many sessions this call expired.
	SweepExpired(ctx context.Context, limit int) (int, error)
}

// CrashService coordinates the continuous-time multiplier game
type CrashService interface {
	// CurrentRound returns the round read model for the viewer, lazily
	// performing every transition the stored timestamps imply: round
	// creation, waiting -> running, running -> crashed, loss sweep, rollover.
	CurrentRound(ctx context.Context, viewerID int64) (*entities.RoundState, error)

	// PlaceBet stakes the user in the waiting round
	PlaceBet(ctx context.Context, roundID, userID, stake int64) (*entities.CrashBet, error)

	// CashOut settles the user's bet at the multiplier derived from now,
	// rejecting if the stored crash point has already been reached
	CashOut(ctx context.Context, roundID, userID int64) (*entities.CrashBet, error)
}
