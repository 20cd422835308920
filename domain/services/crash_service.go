package services

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"gamehall/config"
	"gamehall/domain/entities"
	"gamehall/domain/gameerr"
	"gamehall/domain/games"
	"gamehall/domain/interfaces"
)

type crashService struct {
	roundRepo   interfaces.CrashRoundRepository
	betRepo     interfaces.CrashBetRepository
	ledger      interfaces.Ledger
	eligibility interfaces.Eligibility

	now       func() time.Time
	drawPoint func(roundNumber int64) float64
}

// NewCrashService creates a crash service. Instances are pure logic over the
// given repositories and are meant to be constructed per call.
func NewCrashService(roundRepo interfaces.CrashRoundRepository, betRepo interfaces.CrashBetRepository, ledger interfaces.Ledger, eligibility interfaces.Eligibility) interfaces.CrashService {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &crashService{
		roundRepo:   roundRepo,
		betRepo:     betRepo,
		ledger:      ledger,
		eligibility: eligibility,
		now:         time.Now,
		drawPoint: func(roundNumber int64) float64 {
			return games.DrawCrashPoint(rng, config.Get().CrashHouseEdge, roundNumber)
		},
	}
}

// CurrentRound returns the round read model, lazily performing every
// transition the stored timestamps imply. The engine has no timers: the first
// poller past each threshold advances the round for everyone.
func (s *crashService) CurrentRound(ctx context.Context, viewerID int64) (*entities.RoundState, error) {
	round, err := s.advance(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildState(ctx, round, viewerID)
}

// advance drives the waiting -> running -> crashed -> rollover machine from
// stored timestamps. Every write is a guarded transition; losing any race
// just means re-reading the winner's result.
func (s *crashService) advance(ctx context.Context) (*entities.CrashRound, error) {
	cfg := config.Get()

	round, err := s.roundRepo.GetLatest(ctx)
	if err != nil {
		return nil, gameerr.NewStore("get latest round", err)
	}
	if round == nil {
		round, err = s.createRound(ctx, 1)
		if err != nil {
			return nil, err
		}
	}

	for {
		now := s.now()
		switch round.Status {
		case entities.CrashRoundStatusWaiting:
			if now.Sub(round.CreatedAt) < cfg.CrashBettingWindow {
				return round, nil
			}
			started, err := s.roundRepo.Start(ctx, round.ID, now)
			if err != nil {
				return nil, gameerr.NewStore("start round", err)
			}
			if started == nil {
				round, err = s.reload(ctx, round.ID)
			} else {
				round = started
			}
			if err != nil {
				return nil, err
			}

		case entities.CrashRoundStatusRunning:
			threshold := games.TimeToMultiplier(round.CrashPoint, cfg.CrashGrowthRate)
			if round.StartedAt == nil || now.Sub(*round.StartedAt) < threshold {
				return round, nil
			}
			crashed, err := s.roundRepo.MarkCrashed(ctx, round.ID, now)
			if err != nil {
				return nil, gameerr.NewStore("mark crashed", err)
			}
			if crashed == nil {
				// Another poller performed the crash and its sweep
				round, err = s.reload(ctx, round.ID)
				if err != nil {
					return nil, err
				}
				continue
			}
			swept, err := s.betRepo.SweepLosses(ctx, round.ID, now)
			if err != nil {
				return nil, gameerr.NewStore("sweep losses", err)
			}
			log.WithFields(log.Fields{
				"round_id":    round.ID,
				"crash_point": round.CrashPoint,
				"losses":      len(swept),
			}).Info("crash round ended")
			round = crashed

		case entities.CrashRoundStatusCrashed:
			if round.CrashedAt == nil || now.Sub(*round.CrashedAt) < cfg.CrashDisplayDelay {
				return round, nil
			}
			next, err := s.createRound(ctx, round.ID+1)
			if err != nil {
				return nil, err
			}
			round = next

		default:
			return round, nil
		}
	}
}

// createRound draws the hidden crash point once and inserts the round. The
// store allows a single non-crashed round; losing the insert race returns the
// winner's round.
func (s *crashService) createRound(ctx context.Context, roundNumber int64) (*entities.CrashRound, error) {
	point := s.drawPoint(roundNumber)
	round, err := s.roundRepo.Create(ctx, point)
	if err != nil {
		return nil, gameerr.NewStore("create round", err)
	}
	if round == nil {
		latest, err := s.roundRepo.GetLatest(ctx)
		if err != nil {
			return nil, gameerr.NewStore("get latest round", err)
		}
		if latest == nil {
			return nil, gameerr.NewStateConflict("round creation raced and no round exists")
		}
		return latest, nil
	}
	log.WithField("round_id", round.ID).Info("crash round created")
	return round, nil
}

// PlaceBet stakes the user in the waiting round. One bet per user per round.
func (s *crashService) PlaceBet(ctx context.Context, roundID, userID, stake int64) (*entities.CrashBet, error) {
	cfg := config.Get()
	if stake < cfg.MinStake || stake > cfg.MaxStake {
		return nil, gameerr.NewValidation("stake %d outside allowed range [%d, %d]", stake, cfg.MinStake, cfg.MaxStake)
	}

	if _, err := s.eligibility.CheckEligible(ctx, userID); err != nil {
		return nil, err
	}

	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != entities.CrashRoundStatusWaiting {
		return nil, gameerr.NewStateConflict("round %d is %s, betting is closed", roundID, round.Status)
	}

	bet := &entities.CrashBet{RoundID: roundID, UserID: userID, Stake: stake}
	inserted, err := s.betRepo.Place(ctx, bet)
	if err != nil {
		return nil, gameerr.NewStore("place bet", err)
	}
	if !inserted {
		existing, err := s.betRepo.GetByRoundAndUser(ctx, roundID, userID)
		if err != nil {
			return nil, gameerr.NewStore("get bet", err)
		}
		if existing != nil {
			return nil, gameerr.NewStateConflict("user %d already has a bet in round %d", userID, roundID)
		}
		// The round left waiting between our read and the insert
		return nil, gameerr.NewStateConflict("betting window for round %d closed", roundID)
	}

	meta := map[string]any{"round_id": roundID}
	if err := s.ledger.Debit(ctx, userID, stake, entities.TransactionTypeCrashBet, entities.RelatedTypeCrashRound, strconv.FormatInt(roundID, 10), meta); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"round_id": roundID,
		"user_id":  userID,
		"stake":    stake,
	}).Info("crash bet placed")

	return bet, nil
}

// CashOut settles the user's bet at the multiplier derived from now. The
// recheck against the stored crash point is authoritative: a cash-out at or
// past the crash instant is rejected even if the crashed write has not landed.
func (s *crashService) CashOut(ctx context.Context, roundID, userID int64) (*entities.CrashBet, error) {
	cfg := config.Get()

	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != entities.CrashRoundStatusRunning || round.StartedAt == nil {
		return nil, gameerr.NewStateConflict("round %d is %s, not running", roundID, round.Status)
	}

	now := s.now()
	multiplier := games.Multiplier(now.Sub(*round.StartedAt), cfg.CrashGrowthRate)
	if multiplier >= round.CrashPoint {
		return nil, gameerr.NewStateConflict("round %d crashed at %.2fx before the cash-out", roundID, round.CrashPoint)
	}

	bet, err := s.betRepo.GetByRoundAndUser(ctx, roundID, userID)
	if err != nil {
		return nil, gameerr.NewStore("get bet", err)
	}
	if bet == nil {
		return nil, gameerr.NewStateConflict("user %d has no bet in round %d", userID, roundID)
	}

	profit := games.CashOutProfit(bet.Stake, multiplier, cfg.CrashHouseFee)
	updated, err := s.betRepo.CashOut(ctx, roundID, userID, multiplier, profit, now)
	if err != nil {
		return nil, gameerr.NewStore("cash out", err)
	}
	if updated == nil {
		return nil, gameerr.NewStateConflict("bet for user %d in round %d is already settled", userID, roundID)
	}

	payout := bet.Stake + profit
	meta := map[string]any{"round_id": roundID, "multiplier": multiplier}
	if err := s.ledger.Credit(ctx, userID, payout, entities.TransactionTypeCrashCashOut, entities.RelatedTypeCrashRound, strconv.FormatInt(roundID, 10), meta); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"round_id":   roundID,
		"user_id":    userID,
		"multiplier": multiplier,
		"profit":     profit,
	}).Info("crash bet cashed out")

	return updated, nil
}

func (s *crashService) getRound(ctx context.Context, roundID int64) (*entities.CrashRound, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, gameerr.NewStore("get round", err)
	}
	if round == nil {
		return nil, gameerr.NewStateConflict("round %d not found", roundID)
	}
	return round, nil
}

func (s *crashService) reload(ctx context.Context, roundID int64) (*entities.CrashRound, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, gameerr.NewStore("get round", err)
	}
	if round == nil {
		return nil, gameerr.NewStateConflict("round %d vanished mid-transition", roundID)
	}
	return round, nil
}

// buildState derives the display multiplier from stored timestamps and hides
// the crash point until the round has crashed.
func (s *crashService) buildState(ctx context.Context, round *entities.CrashRound, viewerID int64) (*entities.RoundState, error) {
	cfg := config.Get()

	state := &entities.RoundState{Round: round, Multiplier: 1.0}
	switch round.Status {
	case entities.CrashRoundStatusRunning:
		if round.StartedAt != nil {
			state.Multiplier = games.Multiplier(s.now().Sub(*round.StartedAt), cfg.CrashGrowthRate)
			// Display never exceeds the stored crash point
			if state.Multiplier > round.CrashPoint {
				state.Multiplier = round.CrashPoint
			}
		}
	case entities.CrashRoundStatusCrashed:
		point := round.CrashPoint
		state.Multiplier = point
		state.CrashPoint = &point
	}

	// The hidden draw never leaves the service before the crash
	if round.Status != entities.CrashRoundStatusCrashed {
		masked := *round
		masked.CrashPoint = 0
		state.Round = &masked
	}

	if viewerID != 0 {
		bet, err := s.betRepo.GetByRoundAndUser(ctx, round.ID, viewerID)
		if err != nil {
			return nil, gameerr.NewStore("get bet", err)
		}
		state.Bet = bet
	}

	return state, nil
}
