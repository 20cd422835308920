package testutil

import (
	"time"

	"github.com/google/uuid"

	"gamehall/domain/entities"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(userID int64, username string) *entities.User {
	now := time.Now()
	return &entities.User{
		ID:        userID,
		Username:  username,
		Balance:   100000,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestUserWithBalance creates a test user with a specific balance
func CreateTestUserWithBalance(userID int64, username string, balance int64) *entities.User {
	user := CreateTestUser(userID, username)
	user.Balance = balance
	return user
}

// CreateTestSession creates a pending session between two users
func CreateTestSession(kind entities.GameKind, initiatorID, opponentID, stake int64) *entities.Session {
	now := time.Now()
	return &entities.Session{
		ID:          uuid.New(),
		Kind:        kind,
		Status:      entities.SessionStatusPending,
		InitiatorID: initiatorID,
		OpponentID:  opponentID,
		Stake:       stake,
		Deadline:    now.Add(2 * time.Minute),
		CreatedAt:   now,
	}
}

// CreateTestParticipants creates the two participant rows for a session
func CreateTestParticipants(session *entities.Session) []*entities.Participant {
	return []*entities.Participant{
		{SessionID: session.ID, UserID: session.InitiatorID},
		{SessionID: session.ID, UserID: session.OpponentID},
	}
}

// CreateTestCrashBet creates a crash bet with default values
func CreateTestCrashBet(roundID, userID, stake int64) *entities.CrashBet {
	return &entities.CrashBet{
		RoundID:   roundID,
		UserID:    userID,
		Stake:     stake,
		CreatedAt: time.Now(),
	}
}

// CreateTestBalanceHistory creates a test ledger entry
func CreateTestBalanceHistory(userID int64, transactionType entities.TransactionType) *entities.BalanceHistory {
	return &entities.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   100000,
		BalanceAfter:    90000,
		ChangeAmount:    -10000,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}
