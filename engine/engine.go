// Package engine is the public facade over the game services. Every
// operation runs inside its own unit of work: the transaction either
// commits the guarded transition together with its ledger movements or
// rolls the whole step back.
package engine

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"gamehall/domain/entities"
	"gamehall/domain/gameerr"
	"gamehall/domain/interfaces"
	"gamehall/domain/services"
)

// Engine exposes the game-session operations to transports
type Engine struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// New creates an Engine backed by the given unit-of-work factory
func New(uowFactory interfaces.UnitOfWorkFactory) *Engine {
	return &Engine{uowFactory: uowFactory}
}

// withUoW runs fn inside a fresh transaction, committing on success
func (e *Engine) withUoW(ctx context.Context, op string, fn func(uow interfaces.UnitOfWork) error) error {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return gameerr.NewStore(op, err)
	}
	defer func() {
		if err := uow.Rollback(); err != nil {
			log.WithError(err).WithField("op", op).Error("Failed to rollback transaction")
		}
	}()

	if err := fn(uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return gameerr.NewStore(op, err)
	}
	return nil
}

func (e *Engine) duelService(uow interfaces.UnitOfWork) interfaces.DuelService {
	ledger := services.NewLedger(uow.Users(), uow.BalanceHistory())
	eligibility := services.NewUserService(uow.Users())
	return services.NewDuelService(uow.Sessions(), ledger, eligibility)
}

func (e *Engine) crashService(uow interfaces.UnitOfWork) interfaces.CrashService {
	ledger := services.NewLedger(uow.Users(), uow.BalanceHistory())
	eligibility := services.NewUserService(uow.Users())
	return services.NewCrashService(uow.CrashRounds(), uow.CrashBets(), ledger, eligibility)
}

// Propose creates a pending duel between initiator and opponent
func (e *Engine) Propose(ctx context.Context, initiatorID, opponentID int64, kind entities.GameKind, stake int64) (*entities.Session, error) {
	var session *entities.Session
	err := e.withUoW(ctx, "propose", func(uow interfaces.UnitOfWork) error {
		var err error
		session, err = e.duelService(uow).Propose(ctx, initiatorID, opponentID, kind, stake)
		return err
	})
	return session, err
}

// Accept commits the responder to a pending duel
func (e *Engine) Accept(ctx context.Context, sessionID uuid.UUID, responderID int64) (*entities.SessionState, error) {
	var state *entities.SessionState
	err := e.withUoW(ctx, "accept", func(uow interfaces.UnitOfWork) error {
		var err error
		state, err = e.duelService(uow).Accept(ctx, sessionID, responderID)
		return err
	})
	return state, err
}

// Cancel withdraws a still-pending proposal
func (e *Engine) Cancel(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.Session, error) {
	var session *entities.Session
	err := e.withUoW(ctx, "cancel", func(uow interfaces.UnitOfWork) error {
		var err error
		session, err = e.duelService(uow).Cancel(ctx, sessionID, userID)
		return err
	})
	return session, err
}

// SetReady flags the participant ready; the duel starts when both are
func (e *Engine) SetReady(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.SessionState, error) {
	var state *entities.SessionState
	err := e.withUoW(ctx, "set_ready", func(uow interfaces.UnitOfWork) error {
		var err error
		state, err = e.duelService(uow).SetReady(ctx, sessionID, userID)
		return err
	})
	return state, err
}

// SubmitMove records the participant's move for the duel
func (e *Engine) SubmitMove(ctx context.Context, sessionID uuid.UUID, userID int64, move string) (*entities.SessionState, error) {
	var state *entities.SessionState
	err := e.withUoW(ctx, "submit_move", func(uow interfaces.UnitOfWork) error {
		var err error
		state, err = e.duelService(uow).SubmitMove(ctx, sessionID, userID, move)
		return err
	})
	return state, err
}

// GetState returns the duel read model for the viewer
func (e *Engine) GetState(ctx context.Context, sessionID uuid.UUID, viewerID int64) (*entities.SessionState, error) {
	var state *entities.SessionState
	err := e.withUoW(ctx, "get_state", func(uow interfaces.UnitOfWork) error {
		var err error
		state, err = e.duelService(uow).GetState(ctx, sessionID, viewerID)
		return err
	})
	return state, err
}

// ListOpenSessions returns the user's non-terminal duels, newest first
func (e *Engine) ListOpenSessions(ctx context.Context, userID int64) ([]*entities.Session, error) {
	var sessions []*entities.Session
	err := e.withUoW(ctx, "list_open_sessions", func(uow interfaces.UnitOfWork) error {
		var err error
		sessions, err = e.duelService(uow).ListOpen(ctx, userID)
		return err
	})
	return sessions, err
}

// SessionAudit sums every ledger movement recorded against a duel session.
// For a settled session the net is the negated house take; anything else
// means a settlement paid out more or less than the stakes put in.
func (e *Engine) SessionAudit(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var net int64
	err := e.withUoW(ctx, "session_audit", func(uow interfaces.UnitOfWork) error {
		var err error
		net, err = uow.BalanceHistory().NetMovementForRelated(ctx, entities.RelatedTypeSession, sessionID.String())
		if err != nil {
			return gameerr.NewStore("audit session", err)
		}
		return nil
	})
	return net, err
}

// BalanceHistory returns the user's most recent ledger entries
func (e *Engine) BalanceHistory(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error) {
	var entries []*entities.BalanceHistory
	err := e.withUoW(ctx, "balance_history", func(uow interfaces.UnitOfWork) error {
		var err error
		entries, err = uow.BalanceHistory().GetByUser(ctx, userID, limit)
		if err != nil {
			return gameerr.NewStore("get balance history", err)
		}
		return nil
	})
	return entries, err
}

// SweepExpired expires lapsed pending duels, refunding pre-debited stakes
func (e *Engine) SweepExpired(ctx context.Context, limit int) (int, error) {
	var count int
	err := e.withUoW(ctx, "sweep_expired", func(uow interfaces.UnitOfWork) error {
		var err error
		count, err = e.duelService(uow).SweepExpired(ctx, limit)
		return err
	})
	return count, err
}

// CurrentRound returns the crash round read model for the viewer
func (e *Engine) CurrentRound(ctx context.Context, viewerID int64) (*entities.RoundState, error) {
	var state *entities.RoundState
	err := e.withUoW(ctx, "current_round", func(uow interfaces.UnitOfWork) error {
		var err error
		state, err = e.crashService(uow).CurrentRound(ctx, viewerID)
		return err
	})
	return state, err
}

// PlaceBet stakes the user in the waiting crash round
func (e *Engine) PlaceBet(ctx context.Context, roundID, userID, stake int64) (*entities.CrashBet, error) {
	var bet *entities.CrashBet
	err := e.withUoW(ctx, "place_bet", func(uow interfaces.UnitOfWork) error {
		var err error
		bet, err = e.crashService(uow).PlaceBet(ctx, roundID, userID, stake)
		return err
	})
	return bet, err
}

// CashOut settles the user's crash bet at the multiplier derived from now
func (e *Engine) CashOut(ctx context.Context, roundID, userID int64) (*entities.CrashBet, error) {
	var bet *entities.CrashBet
	err := e.withUoW(ctx, "cash_out", func(uow interfaces.UnitOfWork) error {
		var err error
		bet, err = e.crashService(uow).CashOut(ctx, roundID, userID)
		return err
	})
	return bet, err
}
