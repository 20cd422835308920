package entities

import "time"

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial      TransactionType = "initial"
	TransactionTypeDuelStake    TransactionType = "duel_stake"
	TransactionTypeDuelWin      TransactionType = "duel_win"
	TransactionTypeDuelRefund   TransactionType = "duel_refund"
	TransactionTypeDuelTie      TransactionType = "duel_tie_refund"
	TransactionTypeCrashBet     TransactionType = "crash_bet"
	TransactionTypeCrashCashOut TransactionType = "crash_cashout"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeSession    RelatedType = "session"
	RelatedTypeCrashRound RelatedType = "crash_round"
)

// BalanceHistory represents an immutable record of a single balance change.
// Every debit and credit the engine performs writes exactly one of these in
// the same transaction as the guarded transition that caused it.
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              int64           `db:"user_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *string         `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
