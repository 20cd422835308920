package entities

import "time"

// CrashRoundStatus represents the state of a crash round
type CrashRoundStatus string

const (
	CrashRoundStatusWaiting CrashRoundStatus = "waiting"
	CrashRoundStatusRunning CrashRoundStatus = "running"
	CrashRoundStatusCrashed CrashRoundStatus = "crashed"
)

// CrashRound represents one round of the crash game. The crash point is drawn
// exactly once at creation and stays hidden from read models until the round
// has crashed. The serial ID doubles as the monotonically increasing round
// counter consulted by the big-multiplier pacing schedule.
type CrashRound struct {
	ID         int64            `db:"id"`
	CrashPoint float64          `db:"crash_point"`
	Status     CrashRoundStatus `db:"status"`
	CreatedAt  time.Time        `db:"created_at"`
	StartedAt  *time.Time       `db:"started_at"`
	CrashedAt  *time.Time       `db:"crashed_at"`
}

// CrashBet represents one user's stake in a crash round. At most one bet per
// user per round, enforced by the store's primary key.
type CrashBet struct {
	RoundID           int64      `db:"round_id"`
	UserID            int64      `db:"user_id"`
	Stake             int64      `db:"stake"`
	CashOutMultiplier *float64   `db:"cash_out_multiplier"`
	Profit            *int64     `db:"profit"`
	CreatedAt         time.Time  `db:"created_at"`
	SettledAt         *time.Time `db:"settled_at"`
}

// CashedOut reports whether the bet already has a recorded cash-out
func (b *CrashBet) CashedOut() bool {
	return b.CashOutMultiplier != nil
}
