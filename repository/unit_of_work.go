package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamehall/database"
	"gamehall/domain/interfaces"
)

// unitOfWork implements the UnitOfWork interface over a pgx transaction
type unitOfWork struct {
	db  *database.DB
	tx  pgx.Tx
	ctx context.Context

	userRepo       interfaces.UserRepository
	historyRepo    interfaces.BalanceHistoryRepository
	sessionRepo    interfaces.SessionRepository
	crashRoundRepo interfaces.CrashRoundRepository
	crashBetRepo   interfaces.CrashBetRepository
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) interfaces.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

// Create returns a fresh unit of work
func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &unitOfWork{db: f.db}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepository(tx)
	u.historyRepo = newBalanceHistoryRepository(tx)
	u.sessionRepo = newSessionRepository(tx)
	u.crashRoundRepo = newCrashRoundRepository(tx)
	u.crashBetRepo = newCrashBetRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Rollback rolls back the transaction; a no-op after Commit
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	if err := u.tx.Rollback(u.ctx); err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Users returns the user repository for this unit of work
func (u *unitOfWork) Users() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// BalanceHistory returns the ledger record repository for this unit of work
func (u *unitOfWork) BalanceHistory() interfaces.BalanceHistoryRepository {
	if u.historyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.historyRepo
}

// Sessions returns the duel session repository for this unit of work
func (u *unitOfWork) Sessions() interfaces.SessionRepository {
	if u.sessionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.sessionRepo
}

// CrashRounds returns the crash round repository for this unit of work
func (u *unitOfWork) CrashRounds() interfaces.CrashRoundRepository {
	if u.crashRoundRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.crashRoundRepo
}

// CrashBets returns the crash bet repository for this unit of work
func (u *unitOfWork) CrashBets() interfaces.CrashBetRepository {
	if u.crashBetRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.crashBetRepo
}
