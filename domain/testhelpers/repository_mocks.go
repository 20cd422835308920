package testhelpers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"gamehall/domain/entities"
	"gamehall/domain/interfaces"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID int64) (*entities.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetOrCreate(ctx context.Context, userID int64, username string, initialBalance int64) (*entities.User, error) {
	args := m.Called(ctx, userID, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Debit(ctx context.Context, userID int64, amount int64) (*entities.User, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Credit(ctx context.Context, userID int64, amount int64) (*entities.User, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) NetMovementForRelated(ctx context.Context, relatedType entities.RelatedType, relatedID string) (int64, error) {
	args := m.Called(ctx, relatedType, relatedID)
	return args.Get(0).(int64), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *entities.Session, participants []*entities.Participant) error {
	args := m.Called(ctx, session, participants)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) GetParticipants(ctx context.Context, id uuid.UUID) ([]*entities.Participant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Participant), args.Error(1)
}

func (m *MockSessionRepository) GetOpenByUser(ctx context.Context, userID int64) ([]*entities.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entities.Session, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) Accept(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) Start(ctx context.Context, id uuid.UUID, startedAt time.Time) (*entities.Session, error) {
	args := m.Called(ctx, id, startedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) MarkRevealing(ctx context.Context, id uuid.UUID) (*entities.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) Complete(ctx context.Context, id uuid.UUID, from entities.SessionStatus, winnerID *int64, at time.Time) (*entities.Session, error) {
	args := m.Called(ctx, id, from, winnerID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) Expire(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) SetReady(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.Participant, bool, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.Participant), args.Bool(1), args.Error(2)
}

func (m *MockSessionRepository) RecordMove(ctx context.Context, sessionID uuid.UUID, userID int64, move string) (*entities.Participant, bool, error) {
	args := m.Called(ctx, sessionID, userID, move)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.Participant), args.Bool(1), args.Error(2)
}

func (m *MockSessionRepository) SetStakeContributed(ctx context.Context, sessionID uuid.UUID, userID int64, amount int64) error {
	args := m.Called(ctx, sessionID, userID, amount)
	return args.Error(0)
}

func (m *MockSessionRepository) SetSettlement(ctx context.Context, sessionID uuid.UUID, userID int64, amount int64) error {
	args := m.Called(ctx, sessionID, userID, amount)
	return args.Error(0)
}

// MockCrashRoundRepository is a mock implementation of CrashRoundRepository
type MockCrashRoundRepository struct {
	mock.Mock
}

func (m *MockCrashRoundRepository) Create(ctx context.Context, crashPoint float64) (*entities.CrashRound, error) {
	args := m.Called(ctx, crashPoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrashRound), args.Error(1)
}

func (m *MockCrashRoundRepository) GetLatest(ctx context.Context) (*entities.CrashRound, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrashRound), args.Error(1)
}

func (m *MockCrashRoundRepository) GetByID(ctx context.Context, id int64) (*entities.CrashRound, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrashRound), args.Error(1)
}

func (m *MockCrashRoundRepository) Start(ctx context.Context, id int64, startedAt time.Time) (*entities.CrashRound, error) {
	args := m.Called(ctx, id, startedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrashRound), args.Error(1)
}

func (m *MockCrashRoundRepository) MarkCrashed(ctx context.Context, id int64, at time.Time) (*entities.CrashRound, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrashRound), args.Error(1)
}

// MockCrashBetRepository is a mock implementation of CrashBetRepository
type MockCrashBetRepository struct {
	mock.Mock
}

func (m *MockCrashBetRepository) Place(ctx context.Context, bet *entities.CrashBet) (bool, error) {
	args := m.Called(ctx, bet)
	return args.Bool(0), args.Error(1)
}

func (m *MockCrashBetRepository) GetByRoundAndUser(ctx context.Context, roundID, userID int64) (*entities.CrashBet, error) {
	args := m.Called(ctx, roundID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrashBet), args.Error(1)
}

func (m *MockCrashBetRepository) GetByRound(ctx context.Context, roundID int64) ([]*entities.CrashBet, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CrashBet), args.Error(1)
}

func (m *MockCrashBetRepository) CashOut(ctx context.Context, roundID, userID int64, multiplier float64, profit int64, at time.Time) (*entities.CrashBet, error) {
	args := m.Called(ctx, roundID, userID, multiplier, profit, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrashBet), args.Error(1)
}

func (m *MockCrashBetRepository) SweepLosses(ctx context.Context, roundID int64, at time.Time) ([]*entities.CrashBet, error) {
	args := m.Called(ctx, roundID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CrashBet), args.Error(1)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Users() interfaces.UserRepository {
	args := m.Called()
	return args.Get(0).(interfaces.UserRepository)
}

func (m *MockUnitOfWork) BalanceHistory() interfaces.BalanceHistoryRepository {
	args := m.Called()
	return args.Get(0).(interfaces.BalanceHistoryRepository)
}

func (m *MockUnitOfWork) Sessions() interfaces.SessionRepository {
	args := m.Called()
	return args.Get(0).(interfaces.SessionRepository)
}

func (m *MockUnitOfWork) CrashRounds() interfaces.CrashRoundRepository {
	args := m.Called()
	return args.Get(0).(interfaces.CrashRoundRepository)
}

func (m *MockUnitOfWork) CrashBets() interfaces.CrashBetRepository {
	args := m.Called()
	return args.Get(0).(interfaces.CrashBetRepository)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	args := m.Called()
	return args.Get(0).(interfaces.UnitOfWork)
}

// MockLedger is a mock implementation of the Ledger service
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Debit(ctx context.Context, userID, amount int64, txType entities.TransactionType, relatedType entities.RelatedType, relatedID string, metadata map[string]any) error {
	args := m.Called(ctx, userID, amount, txType, relatedType, relatedID, metadata)
	return args.Error(0)
}

func (m *MockLedger) Credit(ctx context.Context, userID, amount int64, txType entities.TransactionType, relatedType entities.RelatedType, relatedID string, metadata map[string]any) error {
	args := m.Called(ctx, userID, amount, txType, relatedType, relatedID, metadata)
	return args.Error(0)
}

// MockEligibility is a mock implementation of the Eligibility service
type MockEligibility struct {
	mock.Mock
}

func (m *MockEligibility) CheckEligible(ctx context.Context, userID int64) (*entities.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}
