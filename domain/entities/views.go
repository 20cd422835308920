package entities

// SessionState is the read model returned to pollers for a duel session.
// CountdownMs is derived from stored timestamps at read time; it is a
// display value, never authoritative.
type SessionState struct {
	Session      *Session
	Participants []*Participant
	CountdownMs  int64
}

// RoundState is the read model for the current crash round. CrashPoint is nil
// until the round has crashed; Multiplier is derived from the stored start
// timestamp at read time.
type RoundState struct {
	Round      *CrashRound
	Multiplier float64
	CrashPoint *float64
	Bet        *CrashBet
}
