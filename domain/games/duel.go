package games

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"gamehall/domain/entities"
)

// RPS moves
const (
	MoveRock     = "rock"
	MovePaper    = "paper"
	MoveScissors = "scissors"
)

// RollDice returns two uniform rolls in [1,6]
func RollDice(r *rand.Rand) (int, int) {
	return r.Intn(6) + 1, r.Intn(6) + 1
}

// EncodeDiceMove encodes a pair of rolls as a stored move
func EncodeDiceMove(a, b int) string {
	return fmt.Sprintf("%d,%d", a, b)
}

// DiceSum parses a stored dice move and returns the sum of both rolls
func DiceSum(move string) (int, error) {
	parts := strings.Split(move, ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed dice move %q", move)
	}
	sum := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 6 {
			return 0, fmt.Errorf("malformed dice move %q", move)
		}
		sum += n
	}
	return sum, nil
}

// ValidRPSMove reports whether move is a legal rock-paper-scissors choice
func ValidRPSMove(move string) bool {
	return move == MoveRock || move == MovePaper || move == MoveScissors
}

// rpsBeats returns 1 if a beats b, -1 if b beats a, 0 on tie
func rpsBeats(a, b string) int {
	if a == b {
		return 0
	}
	wins := map[string]string{
		MoveRock:     MoveScissors,
		MoveScissors: MovePaper,
		MovePaper:    MoveRock,
	}
	if wins[a] == b {
		return 1
	}
	return -1
}

// ParseClicks parses a stored click-duel move
func ParseClicks(move string) (int, error) {
	n, err := strconv.Atoi(move)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed click move %q", move)
	}
	return n, nil
}

// DuelWinner computes the winning user for a session whose participants have
// both moved. Returns 0 for a tie.
func DuelWinner(kind entities.GameKind, a, b *entities.Participant) (int64, error) {
	if a.Move == nil || b.Move == nil {
		return 0, fmt.Errorf("both moves required to resolve %s duel", kind)
	}

	var cmp int
	switch kind {
	case entities.GameKindDice:
		sa, err := DiceSum(*a.Move)
		if err != nil {
			return 0, err
		}
		sb, err := DiceSum(*b.Move)
		if err != nil {
			return 0, err
		}
		cmp = compare(sa, sb)
	case entities.GameKindClick:
		ca, err := ParseClicks(*a.Move)
		if err != nil {
			return 0, err
		}
		cb, err := ParseClicks(*b.Move)
		if err != nil {
			return 0, err
		}
		cmp = compare(ca, cb)
	case entities.GameKindRPS:
		if !ValidRPSMove(*a.Move) || !ValidRPSMove(*b.Move) {
			return 0, fmt.Errorf("malformed rps moves %q vs %q", *a.Move, *b.Move)
		}
		cmp = rpsBeats(*a.Move, *b.Move)
	default:
		return 0, fmt.Errorf("unknown game kind %q", kind)
	}

	switch {
	case cmp > 0:
		return a.UserID, nil
	case cmp < 0:
		return b.UserID, nil
	}
	return 0, nil
}

// PotFee returns the house cut on a settled pot, in cents
func PotFee(pot, feeBps int64) int64 {
	return pot * feeBps / 10000
}

// WinnerPayout returns the amount credited to the winner of a settled pot
func WinnerPayout(pot, feeBps int64) int64 {
	return pot - PotFee(pot, feeBps)
}

// TieRefund returns the amount refunded to each participant on a tie.
// splitFee refunds stake minus half the pot fee; otherwise each stake is
// charged the full per-kind fee.
func TieRefund(stake, feeBps int64, splitFee bool) int64 {
	if splitFee {
		return stake - PotFee(stake*2, feeBps)/2
	}
	return stake - stake*feeBps/10000
}

// Countdown derives the remaining time before play begins from the stored
// start timestamp. Zero once startedAt has passed.
func Countdown(startedAt, now time.Time) time.Duration {
	if d := startedAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

func compare(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}
