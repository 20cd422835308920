// Package games holds the pure derivation functions: mappings from elapsed
// time and random draws to game values. Nothing here touches the store; every
// caller recomputes identical results from the same stored inputs.
package games

import (
	"math"
	"math/rand"
	"time"
)

const (
	// MinCrashPoint is the floor of the crash-point distribution
	MinCrashPoint = 1.01
	// MaxCrashPoint is the ceiling of the crash-point distribution
	MaxCrashPoint = 100.0

	legendaryChance = 0.01
	epicChance      = 0.02

	// Every bigMultiplierInterval-th round has a bigMultiplierChance shot at
	// a forced mid-range draw, to pace the game with visible big wins.
	bigMultiplierInterval = 5
	bigMultiplierChance   = 0.3
)

// Multiplier returns the crash multiplier after the given elapsed time,
// rounded down to cents and never below 1.00. Pure: identical inputs yield
// identical outputs for every poller.
func Multiplier(elapsed time.Duration, growthRate float64) float64 {
	ms := float64(elapsed.Milliseconds())
	if ms < 0 {
		ms = 0
	}
	m := math.Floor(math.Exp(growthRate*ms)*100) / 100
	if m < 1.0 {
		return 1.0
	}
	return m
}

// TimeToMultiplier inverts the curve: the elapsed time at which Multiplier
// first reaches target. Targets at or below 1.00 are reached immediately.
func TimeToMultiplier(target, growthRate float64) time.Duration {
	if target <= 1.0 {
		return 0
	}
	ms := math.Ceil(math.Log(target) / growthRate)
	return time.Duration(ms) * time.Millisecond
}

// DrawCrashPoint draws the hidden crash point for a round. roundNumber feeds
// the pacing schedule; houseEdge shapes the long-tail draw. The result always
// lies in [MinCrashPoint, MaxCrashPoint] with two decimals.
func DrawCrashPoint(r *rand.Rand, houseEdge float64, roundNumber int64) float64 {
	if roundNumber%bigMultiplierInterval == 0 && r.Float64() < bigMultiplierChance {
		return roundToCents(5 + r.Float64()*20)
	}

	roll := r.Float64()
	switch {
	case roll < legendaryChance:
		return roundToCents(50 + r.Float64()*50)
	case roll < legendaryChance+epicChance:
		return roundToCents(15 + r.Float64()*35)
	}

	e := 1 - houseEdge
	u := r.Float64() * 0.99
	return clampCrashPoint(roundToCents(e / (1 - u)))
}

// CashOutProfit computes the profit credited on a successful cash-out, floored
// to the smallest currency unit. Stake amounts are in cents.
func CashOutProfit(stake int64, multiplier, houseFee float64) int64 {
	return int64(math.Floor(float64(stake)*multiplier*(1-houseFee) - float64(stake)))
}

func roundToCents(v float64) float64 {
	return math.Floor(v*100) / 100
}

func clampCrashPoint(v float64) float64 {
	if v < MinCrashPoint {
		return MinCrashPoint
	}
	if v > MaxCrashPoint {
		return MaxCrashPoint
	}
	return v
}
