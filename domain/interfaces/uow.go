package interfaces

import "context"

// UnitOfWork bundles the repositories behind a single store transaction.
// Guarded transitions and their ledger effects commit or roll back together.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction; safe to call after Commit
	Rollback() error

	// Users returns the user repository for this unit of work
	Users() UserRepository

	// BalanceHistory returns the ledger record repository for this unit of work
	BalanceHistory() BalanceHistoryRepository

	// Sessions returns the duel session repository for this unit of work
	Sessions() SessionRepository

	// CrashRounds returns the crash round repository for this unit of work
	CrashRounds() CrashRoundRepository

	// CrashBets returns the crash bet repository for this unit of work
	CrashBets() CrashBetRepository
}

// UnitOfWorkFactory creates units of work. The engine creates one per public
// operation; no state outlives the call.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
