package games

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamehall/domain/entities"
)

func strPtr(s string) *string { return &s }

func participant(userID int64, move string) *entities.Participant {
	p := &entities.Participant{UserID: userID}
	if move != "" {
		p.Move = strPtr(move)
	}
	return p
}

func TestRollDice_Bounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		a, b := RollDice(r)
		assert.GreaterOrEqual(t, a, 1)
		assert.LessOrEqual(t, a, 6)
		assert.GreaterOrEqual(t, b, 1)
		assert.LessOrEqual(t, b, 6)
	}
}

func TestDiceSum(t *testing.T) {
	sum, err := DiceSum("3,5")
	require.NoError(t, err)
	assert.Equal(t, 8, sum)

	_, err = DiceSum("7,1")
	assert.Error(t, err)
	_, err = DiceSum("3")
	assert.Error(t, err)
	_, err = DiceSum("a,b")
	assert.Error(t, err)
}

func TestDuelWinner_Dice(t *testing.T) {
	a := participant(1, EncodeDiceMove(6, 5))
	b := participant(2, EncodeDiceMove(2, 3))

	winner, err := DuelWinner(entities.GameKindDice, a, b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), winner)

	winner, err = DuelWinner(entities.GameKindDice, b, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), winner)
}

func TestDuelWinner_DiceTie(t *testing.T) {
	a := participant(1, EncodeDiceMove(4, 4))
	b := participant(2, EncodeDiceMove(6, 2))

	winner, err := DuelWinner(entities.GameKindDice, a, b)
	require.NoError(t, err)
	assert.Equal(t, int64(0), winner)
}

func TestDuelWinner_Click(t *testing.T) {
	a := participant(1, "87")
	b := participant(2, "91")

	winner, err := DuelWinner(entities.GameKindClick, a, b)
	require.NoError(t, err)
	assert.Equal(t, int64(2), winner)
}

func TestDuelWinner_RPS(t *testing.T) {
	cases := []struct {
		a, b   string
		winner int64
	}{
		{MoveRock, MoveScissors, 1},
		{MoveScissors, MoveRock, 2},
		{MovePaper, MoveRock, 1},
		{MoveRock, MovePaper, 2},
		{MoveScissors, MovePaper, 1},
		{MovePaper, MoveScissors, 2},
		{MoveRock, MoveRock, 0},
	}
	for _, tc := range cases {
		winner, err := DuelWinner(entities.GameKindRPS, participant(1, tc.a), participant(2, tc.b))
		require.NoError(t, err)
		assert.Equal(t, tc.winner, winner, "%s vs %s", tc.a, tc.b)
	}
}

func TestDuelWinner_RequiresBothMoves(t *testing.T) {
	a := participant(1, MoveRock)
	b := participant(2, "")

	_, err := DuelWinner(entities.GameKindRPS, a, b)
	assert.Error(t, err)
}

func TestWinnerPayout(t *testing.T) {
	// 1000-cent stakes, 10% dice fee: pot 2000, fee 200, payout 1800
	assert.Equal(t, int64(1800), WinnerPayout(2000, 1000))

	// 5% click/rps fee on the same pot
	assert.Equal(t, int64(1900), WinnerPayout(2000, 500))
}

func TestTieRefund(t *testing.T) {
	// Split fee: 500-cent stakes at 500 bps, pot fee 50, each side pays 25
	assert.Equal(t, int64(475), TieRefund(500, 500, true))

	// Full per-stake fee: dice charges each stake the whole rate
	assert.Equal(t, int64(450), TieRefund(500, 1000, false))
}

func TestCountdown(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 3*time.Second, Countdown(now.Add(3*time.Second), now))
	assert.Equal(t, time.Duration(0), Countdown(now.Add(-time.Second), now))
	assert.Equal(t, time.Duration(0), Countdown(now, now))
}

func TestParseClicks(t *testing.T) {
	n, err := ParseClicks("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = ParseClicks("-1")
	assert.Error(t, err)
	_, err = ParseClicks("4.2")
	assert.Error(t, err)
}
