package entities

import (
	"github.com/google/uuid"
)

// Participant represents one side of a duel session.
// Move is write-once: the store enforces at most one move per participant.
type Participant struct {
	SessionID        uuid.UUID `db:"session_id"`
	UserID           int64     `db:"user_id"`
	StakeContributed int64     `db:"stake_contributed"`
	Move             *string   `db:"move"`
	Ready            bool      `db:"ready"`
	Settlement       *int64    `db:"settlement"`
}

// HasMoved reports whether the participant has already submitted a move
func (p *Participant) HasMoved() bool {
	return p.Move != nil
}

// BothReady reports whether every participant in the slice has set the ready flag
func BothReady(participants []*Participant) bool {
	if len(participants) < 2 {
		return false
	}
	for _, p := range participants {
		if !p.Ready {
			return false
		}
	}
	return true
}

// BothMoved reports whether every participant in the slice has a stored move
func BothMoved(participants []*Participant) bool {
	if len(participants) < 2 {
		return false
	}
	for _, p := range participants {
		if !p.HasMoved() {
			return false
		}
	}
	return true
}

// FindParticipant returns the entry for the given user, or nil
func FindParticipant(participants []*Participant, userID int64) *Participant {
	for _, p := range participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}
