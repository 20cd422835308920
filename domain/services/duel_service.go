package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"gamehall/config"
	"gamehall/domain/entities"
	"gamehall/domain/gameerr"
	"gamehall/domain/games"
	"gamehall/domain/interfaces"
)

type duelService struct {
	sessionRepo interfaces.SessionRepository
	ledger      interfaces.Ledger
	eligibility interfaces.Eligibility

	now      func() time.Time
	rollDice func() (int, int)
}

// NewDuelService creates a duel service. Instances are pure logic over the
// given repositories and are meant to be constructed per call.
func NewDuelService(sessionRepo interfaces.SessionRepository, ledger interfaces.Ledger, eligibility interfaces.Eligibility) interfaces.DuelService {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &duelService{
		sessionRepo: sessionRepo,
		ledger:      ledger,
		eligibility: eligibility,
		now:         time.Now,
		rollDice:    func() (int, int) { return games.RollDice(rng) },
	}
}

// Propose creates a new pending session between initiator and opponent
func (s *duelService) Propose(ctx context.Context, initiatorID, opponentID int64, kind entities.GameKind, stake int64) (*entities.Session, error) {
	cfg := config.Get()

	if !kind.Valid() {
		return nil, gameerr.NewValidation("unknown game kind %q", kind)
	}
	if initiatorID == opponentID {
		return nil, gameerr.NewValidation("cannot challenge yourself")
	}
	if stake < cfg.MinStake || stake > cfg.MaxStake {
		return nil, gameerr.NewValidation("stake %d outside allowed range [%d, %d]", stake, cfg.MinStake, cfg.MaxStake)
	}

	initiator, err := s.eligibility.CheckEligible(ctx, initiatorID)
	if err != nil {
		return nil, err
	}
	opponent, err := s.eligibility.CheckEligible(ctx, opponentID)
	if err != nil {
		return nil, err
	}
	if initiator.Balance < stake {
		return nil, gameerr.NewEligibility("insufficient balance: have %d, need %d", initiator.Balance, stake)
	}
	if opponent.Balance < stake {
		return nil, gameerr.NewEligibility("opponent has insufficient balance: they have %d, need %d", opponent.Balance, stake)
	}

	now := s.now()
	session := &entities.Session{
		ID:          uuid.New(),
		Kind:        kind,
		Status:      entities.SessionStatusPending,
		InitiatorID: initiatorID,
		OpponentID:  opponentID,
		Stake:       stake,
		Deadline:    now.Add(cfg.ProposalTTL),
	}
	participants := []*entities.Participant{
		{SessionID: session.ID, UserID: initiatorID},
		{SessionID: session.ID, UserID: opponentID},
	}

	if err := s.sessionRepo.Create(ctx, session, participants); err != nil {
		return nil, gameerr.NewStore("create session", err)
	}

	policy := cfg.DuelPolicy(kind)
	if policy.DebitOnPropose {
		if err := s.contributeStake(ctx, session, initiatorID); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"session_id": session.ID,
		"kind":       kind,
		"initiator":  initiatorID,
		"opponent":   opponentID,
		"stake":      stake,
	}).Info("duel proposed")

	return session, nil
}

// Accept commits the responder. Dice duels roll, settle and complete inside
// the same guarded transition.
func (s *duelService) Accept(ctx context.Context, sessionID uuid.UUID, responderID int64) (*entities.SessionState, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if session.IsPastDeadline(now) {
		if _, err := s.expireSession(ctx, session); err != nil {
			return nil, err
		}
		return nil, gameerr.NewExpired("session %s lapsed before it was accepted", sessionID)
	}

	if session.OpponentID != responderID {
		return nil, gameerr.NewValidation("only the challenged user can accept")
	}
	if session.Status != entities.SessionStatusPending {
		return nil, gameerr.NewStateConflict("session %s is %s, not pending", sessionID, session.Status)
	}

	if _, err := s.eligibility.CheckEligible(ctx, responderID); err != nil {
		return nil, err
	}

	// The conditional accept is the claim: exactly one call moves the
	// session out of pending, and only that call touches any balance.
	accepted, err := s.sessionRepo.Accept(ctx, sessionID, now)
	if err != nil {
		return nil, gameerr.NewStore("accept session", err)
	}
	if accepted == nil {
		return nil, gameerr.NewStateConflict("session %s was already resolved by another call", sessionID)
	}

	policy := config.Get().DuelPolicy(session.Kind)
	if policy.InstantResolve {
		return s.acceptInstant(ctx, accepted, policy)
	}

	if err := s.contributeStake(ctx, accepted, responderID); err != nil {
		return nil, err
	}

	// Kinds without a ready phase begin play immediately
	if !policy.RequiresReady {
		started, err := s.sessionRepo.Start(ctx, sessionID, now)
		if err != nil {
			return nil, gameerr.NewStore("start session", err)
		}
		if started != nil {
			accepted = started
		}
	}

	log.WithFields(log.Fields{
		"session_id": sessionID,
		"responder":  responderID,
	}).Info("duel accepted")

	return s.buildState(ctx, accepted, responderID)
}

// acceptInstant performs the dice flow behind the pending -> accepted claim:
// both stakes move, both rolls land and the session resolves. The claim is
// what keeps a duplicated accept from re-applying the debits.
func (s *duelService) acceptInstant(ctx context.Context, session *entities.Session, policy config.DuelPolicy) (*entities.SessionState, error) {
	if err := s.contributeStake(ctx, session, session.InitiatorID); err != nil {
		return nil, err
	}
	if err := s.contributeStake(ctx, session, session.OpponentID); err != nil {
		return nil, err
	}

	for _, userID := range []int64{session.InitiatorID, session.OpponentID} {
		a, b := s.rollDice()
		recorded, _, err := s.sessionRepo.RecordMove(ctx, session.ID, userID, games.EncodeDiceMove(a, b))
		if err != nil {
			return nil, gameerr.NewStore("record roll", err)
		}
		if recorded == nil {
			return nil, gameerr.NewStateConflict("roll already recorded for %d in session %s", userID, session.ID)
		}
	}

	participants, err := s.sessionRepo.GetParticipants(ctx, session.ID)
	if err != nil {
		return nil, gameerr.NewStore("get participants", err)
	}

	completed, err := s.settle(ctx, session, participants, entities.SessionStatusAccepted, policy)
	if err != nil {
		return nil, err
	}
	return s.buildState(ctx, completed, 0)
}

// Cancel withdraws a still-pending proposal and refunds any pre-debited stake
func (s *duelService) Cancel(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.Session, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.InitiatorID != userID {
		return nil, gameerr.NewValidation("only the initiator can cancel")
	}
	if !session.CanBeCancelled(userID) {
		return nil, gameerr.NewStateConflict("session %s is %s, not pending", sessionID, session.Status)
	}

	cancelled, err := s.sessionRepo.Cancel(ctx, sessionID, s.now())
	if err != nil {
		return nil, gameerr.NewStore("cancel session", err)
	}
	if cancelled == nil {
		return nil, gameerr.NewStateConflict("session %s was already resolved by another call", sessionID)
	}

	if err := s.refundContributions(ctx, cancelled, entities.TransactionTypeDuelRefund); err != nil {
		return nil, err
	}

	log.WithField("session_id", sessionID).Info("duel cancelled")
	return cancelled, nil
}

// SetReady flags the participant ready. The second ready triggers the
// accepted -> playing transition; two guards keep the start idempotent.
func (s *duelService) SetReady(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.SessionState, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(userID) {
		return nil, gameerr.NewValidation("user %d is not part of this duel", userID)
	}

	policy := config.Get().DuelPolicy(session.Kind)
	if !policy.RequiresReady {
		return nil, gameerr.NewValidation("%s duels have no ready phase", session.Kind)
	}

	switch session.Status {
	case entities.SessionStatusAccepted:
		// fall through to the ready write
	case entities.SessionStatusPlaying:
		// A late poller simply observes the already-set start
		return s.buildState(ctx, session, userID)
	default:
		return nil, gameerr.NewStateConflict("session %s is %s, not accepted", sessionID, session.Status)
	}

	// First guard: the ready flag write returns the freshly written row and
	// the other side's committed flag, never a stale pre-read.
	fresh, otherReady, err := s.sessionRepo.SetReady(ctx, sessionID, userID)
	if err != nil {
		return nil, gameerr.NewStore("set ready", err)
	}
	if fresh == nil {
		return nil, gameerr.NewStateConflict("participant %d not found in session %s", userID, sessionID)
	}

	if otherReady {
		if err := s.tryStart(ctx, session); err != nil {
			return nil, err
		}
	}

	session, err = s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.buildState(ctx, session, userID)
}

// tryStart performs the second guard: accepted -> playing conditioned on
// started_at being unset. Losing the race is fine; the winner's timestamp is
// the one every poller derives the countdown from.
func (s *duelService) tryStart(ctx context.Context, session *entities.Session) error {
	startedAt := s.now().Add(config.Get().CountdownOffset)
	started, err := s.sessionRepo.Start(ctx, session.ID, startedAt)
	if err != nil {
		return gameerr.NewStore("start session", err)
	}
	if started != nil {
		log.WithFields(log.Fields{
			"session_id": session.ID,
			"started_at": started.StartedAt,
		}).Info("duel started")
	}
	return nil
}

// SubmitMove records a write-once move. The first submission reveals, the
// deciding submission settles inside the same guarded write.
func (s *duelService) SubmitMove(ctx context.Context, sessionID uuid.UUID, userID int64, move string) (*entities.SessionState, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(userID) {
		return nil, gameerr.NewValidation("user %d is not part of this duel", userID)
	}

	if err := validateMove(session.Kind, move); err != nil {
		return nil, err
	}

	if session.Status != entities.SessionStatusPlaying && session.Status != entities.SessionStatusRevealing {
		return nil, gameerr.NewStateConflict("session %s is %s, moves are not open", sessionID, session.Status)
	}

	policy := config.Get().DuelPolicy(session.Kind)
	if session.StartedAt == nil {
		return nil, gameerr.NewStateConflict("session %s has no start time", sessionID)
	}
	now := s.now()
	if earliest := session.StartedAt.Add(policy.MinPlayDuration); now.Before(earliest) {
		return nil, gameerr.NewStateConflict("moves open at %s, it is %s", earliest.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	// The move write itself reports whether the opponent's move has already
	// committed; a pre-read snapshot could miss it and strand the session.
	recorded, otherMoved, err := s.sessionRepo.RecordMove(ctx, sessionID, userID, move)
	if err != nil {
		return nil, gameerr.NewStore("record move", err)
	}
	if recorded == nil {
		return nil, gameerr.NewStateConflict("move already submitted for session %s", sessionID)
	}

	if !otherMoved {
		// First submission: reveal and wait for the opponent. If their move
		// lands while ours is in flight, the next poll settles the duel.
		if _, err := s.sessionRepo.MarkRevealing(ctx, sessionID); err != nil {
			return nil, gameerr.NewStore("mark revealing", err)
		}
		session, err = s.getSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return s.buildState(ctx, session, userID)
	}

	participants, err := s.sessionRepo.GetParticipants(ctx, sessionID)
	if err != nil {
		return nil, gameerr.NewStore("get participants", err)
	}

	settled, err := s.settle(ctx, session, participants, entities.SessionStatusRevealing, policy)
	if err != nil {
		return nil, err
	}
	return s.buildState(ctx, settled, userID)
}

// settle computes the outcome and performs all payouts, guarded by the single
// conditional completed write. If another caller already settled, the stored
// outcome is returned untouched.
func (s *duelService) settle(ctx context.Context, session *entities.Session, participants []*entities.Participant, from entities.SessionStatus, policy config.DuelPolicy) (*entities.Session, error) {
	a, b := participants[0], participants[1]
	winnerID, err := games.DuelWinner(session.Kind, a, b)
	if err != nil {
		return nil, gameerr.NewStore("resolve duel", err)
	}

	var winnerPtr *int64
	if winnerID != 0 {
		winnerPtr = &winnerID
	}

	completed, err := s.sessionRepo.Complete(ctx, session.ID, from, winnerPtr, s.now())
	if err != nil {
		return nil, gameerr.NewStore("complete session", err)
	}
	if completed == nil {
		// Another caller settled first; return their outcome.
		return s.getSession(ctx, session.ID)
	}

	if winnerID != 0 {
		payout := games.WinnerPayout(completed.Pot(), policy.HouseFeeBps)
		loserID := completed.Opponent(winnerID)
		meta := map[string]any{"kind": completed.Kind, "pot": completed.Pot()}
		if err := s.ledger.Credit(ctx, winnerID, payout, entities.TransactionTypeDuelWin, entities.RelatedTypeSession, completed.ID.String(), meta); err != nil {
			return nil, err
		}
		if err := s.sessionRepo.SetSettlement(ctx, completed.ID, winnerID, payout); err != nil {
			return nil, gameerr.NewStore("set settlement", err)
		}
		if err := s.sessionRepo.SetSettlement(ctx, completed.ID, loserID, 0); err != nil {
			return nil, gameerr.NewStore("set settlement", err)
		}
	} else {
		refund := games.TieRefund(completed.Stake, policy.HouseFeeBps, policy.SplitTieFee)
		for _, p := range participants {
			meta := map[string]any{"kind": completed.Kind, "tie": true}
			if err := s.ledger.Credit(ctx, p.UserID, refund, entities.TransactionTypeDuelTie, entities.RelatedTypeSession, completed.ID.String(), meta); err != nil {
				return nil, err
			}
			if err := s.sessionRepo.SetSettlement(ctx, completed.ID, p.UserID, refund); err != nil {
				return nil, gameerr.NewStore("set settlement", err)
			}
		}
	}

	log.WithFields(log.Fields{
		"session_id": completed.ID,
		"kind":       completed.Kind,
		"winner":     winnerID,
	}).Info("duel settled")

	return completed, nil
}

// GetState returns the read model, first performing any transition the
// stored timestamps already imply.
func (s *duelService) GetState(ctx context.Context, sessionID uuid.UUID, viewerID int64) (*entities.SessionState, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.IsPastDeadline(s.now()) {
		session, err = s.expireSession(ctx, session)
		if err != nil {
			return nil, err
		}
	}

	// Recover a click duel stuck by two simultaneous ready writes that could
	// not see each other's flag: any poller may trigger the start.
	if session.Status == entities.SessionStatusAccepted && session.StartedAt == nil {
		participants, err := s.sessionRepo.GetParticipants(ctx, sessionID)
		if err != nil {
			return nil, gameerr.NewStore("get participants", err)
		}
		if entities.BothReady(participants) {
			if err := s.tryStart(ctx, session); err != nil {
				return nil, err
			}
			session, err = s.getSession(ctx, sessionID)
			if err != nil {
				return nil, err
			}
		}
	}

	// Same recovery for the move race: two submissions in flight together can
	// each miss the other's write, leaving both moves stored but nothing
	// settled. Any poller may perform the settlement.
	if session.Status == entities.SessionStatusPlaying || session.Status == entities.SessionStatusRevealing {
		participants, err := s.sessionRepo.GetParticipants(ctx, sessionID)
		if err != nil {
			return nil, gameerr.NewStore("get participants", err)
		}
		if entities.BothMoved(participants) {
			policy := config.Get().DuelPolicy(session.Kind)
			session, err = s.settle(ctx, session, participants, session.Status, policy)
			if err != nil {
				return nil, err
			}
		}
	}

	return s.buildState(ctx, session, viewerID)
}

// ListOpen returns the user's non-terminal sessions, newest first
func (s *duelService) ListOpen(ctx context.Context, userID int64) ([]*entities.Session, error) {
	sessions, err := s.sessionRepo.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, gameerr.NewStore("list open sessions", err)
	}
	return sessions, nil
}

// SweepExpired lazily expires lapsed pending sessions
func (s *duelService) SweepExpired(ctx context.Context, limit int) (int, error) {
	sessions, err := s.sessionRepo.GetExpiredPending(ctx, s.now(), limit)
	if err != nil {
		return 0, gameerr.NewStore("list expired sessions", err)
	}

	swept := 0
	for _, session := range sessions {
		expired, err := s.sessionRepo.Expire(ctx, session.ID, s.now())
		if err != nil {
			return swept, gameerr.NewStore("expire session", err)
		}
		if expired == nil {
			continue // another poller got there first
		}
		if err := s.refundContributions(ctx, expired, entities.TransactionTypeDuelRefund); err != nil {
			return swept, err
		}
		swept++
	}

	if swept > 0 {
		log.WithField("count", swept).Info("expired duel sessions swept")
	}
	return swept, nil
}

// expireSession expires a single lapsed session; used by reads that observe a
// passed deadline. The expire write is the guard: refunds land only in the
// transaction where it wins.
func (s *duelService) expireSession(ctx context.Context, session *entities.Session) (*entities.Session, error) {
	expired, err := s.sessionRepo.Expire(ctx, session.ID, s.now())
	if err != nil {
		return nil, gameerr.NewStore("expire session", err)
	}
	if expired == nil {
		return s.getSession(ctx, session.ID)
	}
	if err := s.refundContributions(ctx, expired, entities.TransactionTypeDuelRefund); err != nil {
		return nil, err
	}
	log.WithField("session_id", session.ID).Info("duel expired")
	return expired, nil
}

// contributeStake debits a participant's stake and records the contribution
func (s *duelService) contributeStake(ctx context.Context, session *entities.Session, userID int64) error {
	meta := map[string]any{"kind": session.Kind}
	if err := s.ledger.Debit(ctx, userID, session.Stake, entities.TransactionTypeDuelStake, entities.RelatedTypeSession, session.ID.String(), meta); err != nil {
		return err
	}
	if err := s.sessionRepo.SetStakeContributed(ctx, session.ID, userID, session.Stake); err != nil {
		return gameerr.NewStore("set stake contributed", err)
	}
	return nil
}

// refundContributions returns every paid-in stake in full
func (s *duelService) refundContributions(ctx context.Context, session *entities.Session, txType entities.TransactionType) error {
	participants, err := s.sessionRepo.GetParticipants(ctx, session.ID)
	if err != nil {
		return gameerr.NewStore("get participants", err)
	}
	for _, p := range participants {
		if p.StakeContributed <= 0 {
			continue
		}
		meta := map[string]any{"kind": session.Kind, "status": session.Status}
		if err := s.ledger.Credit(ctx, p.UserID, p.StakeContributed, txType, entities.RelatedTypeSession, session.ID.String(), meta); err != nil {
			return err
		}
		if err := s.sessionRepo.SetSettlement(ctx, session.ID, p.UserID, p.StakeContributed); err != nil {
			return gameerr.NewStore("set settlement", err)
		}
	}
	return nil
}

func (s *duelService) getSession(ctx context.Context, sessionID uuid.UUID) (*entities.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, gameerr.NewStore("get session", err)
	}
	if session == nil {
		return nil, gameerr.NewStateConflict("session %s not found", sessionID)
	}
	return session, nil
}

// buildState assembles the read model, hiding other participants' moves
// until the session completes.
func (s *duelService) buildState(ctx context.Context, session *entities.Session, viewerID int64) (*entities.SessionState, error) {
	participants, err := s.sessionRepo.GetParticipants(ctx, session.ID)
	if err != nil {
		return nil, gameerr.NewStore("get participants", err)
	}

	visible := make([]*entities.Participant, 0, len(participants))
	for _, p := range participants {
		cp := *p
		if session.Status != entities.SessionStatusCompleted && p.UserID != viewerID {
			cp.Move = nil
		}
		visible = append(visible, &cp)
	}

	state := &entities.SessionState{
		Session:      session,
		Participants: visible,
	}
	if session.StartedAt != nil && session.Status == entities.SessionStatusPlaying {
		state.CountdownMs = games.Countdown(*session.StartedAt, s.now()).Milliseconds()
	}
	return state, nil
}

func validateMove(kind entities.GameKind, move string) error {
	switch kind {
	case entities.GameKindClick:
		if _, err := games.ParseClicks(move); err != nil {
			return gameerr.NewValidation("malformed click count %q", move)
		}
	case entities.GameKindRPS:
		if !games.ValidRPSMove(move) {
			return gameerr.NewValidation("malformed move %q, want rock, paper or scissors", move)
		}
	case entities.GameKindDice:
		return gameerr.NewValidation("dice duels resolve on accept, no move to submit")
	}
	return nil
}
