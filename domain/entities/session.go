package entities

import (
	"time"

	"github.com/google/uuid"
)

// GameKind identifies which duel game a session plays
type GameKind string

const (
	GameKindClick GameKind = "click"
	GameKindDice  GameKind = "dice"
	GameKindRPS   GameKind = "rps"
)

// Valid reports whether the kind is one of the known duel games
func (k GameKind) Valid() bool {
	switch k {
	case GameKindClick, GameKindDice, GameKindRPS:
		return true
	}
	return false
}

// SessionStatus represents the state of a duel session
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusAccepted  SessionStatus = "accepted"
	SessionStatusPlaying   SessionStatus = "playing"
	SessionStatusRevealing SessionStatus = "revealing"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusExpired   SessionStatus = "expired"
)

// IsTerminal reports whether the status permits no further transitions
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusCancelled, SessionStatusExpired:
		return true
	}
	return false
}

// Session represents a stake-bearing duel between two users
type Session struct {
	ID          uuid.UUID     `db:"id"`
	Kind        GameKind      `db:"kind"`
	Status      SessionStatus `db:"status"`
	InitiatorID int64         `db:"initiator_id"`
	OpponentID  int64         `db:"opponent_id"`
	Stake       int64         `db:"stake"`
	WinnerID    *int64        `db:"winner_id"`
	Deadline    time.Time     `db:"deadline"`
	CreatedAt   time.Time     `db:"created_at"`
	AcceptedAt  *time.Time    `db:"accepted_at"`
	StartedAt   *time.Time    `db:"started_at"`
	CompletedAt *time.Time    `db:"completed_at"`
}

// IsParticipant checks if a user is involved in the session
func (s *Session) IsParticipant(userID int64) bool {
	return s.InitiatorID == userID || s.OpponentID == userID
}

// Opponent returns the other participant's user ID
func (s *Session) Opponent(userID int64) int64 {
	if s.InitiatorID == userID {
		return s.OpponentID
	}
	if s.OpponentID == userID {
		return s.InitiatorID
	}
	return 0
}

// CanBeAccepted checks if the session can be accepted by the given user
func (s *Session) CanBeAccepted(userID int64) bool {
	return s.Status == SessionStatusPending && s.OpponentID == userID
}

// CanBeCancelled checks if the session can be cancelled by the given user
func (s *Session) CanBeCancelled(userID int64) bool {
	return s.Status == SessionStatusPending && s.InitiatorID == userID
}

// IsPastDeadline reports whether a still-pending session has outlived its deadline
func (s *Session) IsPastDeadline(now time.Time) bool {
	return s.Status == SessionStatusPending && now.After(s.Deadline)
}

// Pot returns the total amount at stake once both sides have committed
func (s *Session) Pot() int64 {
	return s.Stake * 2
}
