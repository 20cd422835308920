package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gamehall/config"
	"gamehall/domain/entities"
	"gamehall/domain/gameerr"
	"gamehall/domain/testhelpers"
)

type duelMocks struct {
	sessions    *testhelpers.MockSessionRepository
	ledger      *testhelpers.MockLedger
	eligibility *testhelpers.MockEligibility
}

func newTestDuelService(t *testing.T) (*duelService, *duelMocks) {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)

	m := &duelMocks{
		sessions:    new(testhelpers.MockSessionRepository),
		ledger:      new(testhelpers.MockLedger),
		eligibility: new(testhelpers.MockEligibility),
	}
	svc := NewDuelService(m.sessions, m.ledger, m.eligibility).(*duelService)
	return svc, m
}

func (m *duelMocks) assertExpectations(t *testing.T) {
	m.sessions.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
	m.eligibility.AssertExpectations(t)
}

func eligibleUser(id int64, balance int64) *entities.User {
	return &entities.User{ID: id, Username: "tester", Balance: balance}
}

func pendingSession(kind entities.GameKind, stake int64, deadline time.Time) *entities.Session {
	return &entities.Session{
		ID:          uuid.New(),
		Kind:        kind,
		Status:      entities.SessionStatusPending,
		InitiatorID: 1,
		OpponentID:  2,
		Stake:       stake,
		Deadline:    deadline,
	}
}

func TestDuelService_Propose_UnknownKind(t *testing.T) {
	svc, m := newTestDuelService(t)

	_, err := svc.Propose(context.Background(), 1, 2, "poker", 500)

	assert.True(t, gameerr.IsValidation(err))
	m.assertExpectations(t)
}

func TestDuelService_Propose_SelfChallenge(t *testing.T) {
	svc, m := newTestDuelService(t)

	_, err := svc.Propose(context.Background(), 1, 1, entities.GameKindDice, 500)

	assert.True(t, gameerr.IsValidation(err))
	m.assertExpectations(t)
}

func TestDuelService_Propose_StakeOutOfRange(t *testing.T) {
	svc, m := newTestDuelService(t)

	_, err := svc.Propose(context.Background(), 1, 2, entities.GameKindDice, 50)
	assert.True(t, gameerr.IsValidation(err))

	_, err = svc.Propose(context.Background(), 1, 2, entities.GameKindDice, 2000000)
	assert.True(t, gameerr.IsValidation(err))

	m.assertExpectations(t)
}

func TestDuelService_Propose_OpponentCannotCover(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	m.eligibility.On("CheckEligible", ctx, int64(1)).Return(eligibleUser(1, 100000), nil)
	m.eligibility.On("CheckEligible", ctx, int64(2)).Return(eligibleUser(2, 100), nil)

	_, err := svc.Propose(ctx, 1, 2, entities.GameKindDice, 500)

	assert.True(t, gameerr.IsEligibility(err))
	m.assertExpectations(t)
}

func TestDuelService_Propose_RPSDebitsInitiator(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	m.eligibility.On("CheckEligible", ctx, int64(1)).Return(eligibleUser(1, 100000), nil)
	m.eligibility.On("CheckEligible", ctx, int64(2)).Return(eligibleUser(2, 100000), nil)
	m.sessions.On("Create", ctx, mock.AnythingOfType("*entities.Session"), mock.Anything).Return(nil)
	m.ledger.On("Debit", ctx, int64(1), int64(500), entities.TransactionTypeDuelStake,
		entities.RelatedTypeSession, mock.AnythingOfType("string"), mock.Anything).Return(nil)
	m.sessions.On("SetStakeContributed", ctx, mock.AnythingOfType("uuid.UUID"), int64(1), int64(500)).Return(nil)

	session, err := svc.Propose(ctx, 1, 2, entities.GameKindRPS, 500)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusPending, session.Status)
	assert.Equal(t, entities.GameKindRPS, session.Kind)
	m.assertExpectations(t)
}

func TestDuelService_Propose_DiceDefersDebit(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	m.eligibility.On("CheckEligible", ctx, int64(1)).Return(eligibleUser(1, 100000), nil)
	m.eligibility.On("CheckEligible", ctx, int64(2)).Return(eligibleUser(2, 100000), nil)
	m.sessions.On("Create", ctx, mock.AnythingOfType("*entities.Session"), mock.Anything).Return(nil)

	_, err := svc.Propose(ctx, 1, 2, entities.GameKindDice, 500)

	require.NoError(t, err)
	m.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestDuelService_Accept_WrongResponder(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }
	session := pendingSession(entities.GameKindDice, 500, now.Add(time.Minute))
	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)

	_, err := svc.Accept(ctx, session.ID, 99)

	assert.True(t, gameerr.IsValidation(err))
	m.assertExpectations(t)
}

func TestDuelService_Accept_LapsedProposalExpires(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }
	session := pendingSession(entities.GameKindRPS, 500, now.Add(-time.Second))

	expired := *session
	expired.Status = entities.SessionStatusExpired

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.sessions.On("Expire", ctx, session.ID, now).Return(&expired, nil)
	// Initiator pre-paid on propose; expiry refunds it in the same step
	m.sessions.On("GetParticipants", ctx, session.ID).Return([]*entities.Participant{
		{SessionID: session.ID, UserID: 1, StakeContributed: 500},
		{SessionID: session.ID, UserID: 2},
	}, nil)
	m.ledger.On("Credit", ctx, int64(1), int64(500), entities.TransactionTypeDuelRefund,
		entities.RelatedTypeSession, session.ID.String(), mock.Anything).Return(nil)
	m.sessions.On("SetSettlement", ctx, session.ID, int64(1), int64(500)).Return(nil)

	_, err := svc.Accept(ctx, session.ID, 2)

	assert.True(t, gameerr.IsExpired(err))
	m.assertExpectations(t)
}

func TestDuelService_Accept_AlreadyResolved(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }
	session := pendingSession(entities.GameKindClick, 500, now.Add(time.Minute))

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.eligibility.On("CheckEligible", ctx, int64(2)).Return(eligibleUser(2, 100000), nil)
	// The conditional accept lost: another call moved the session first
	m.sessions.On("Accept", ctx, session.ID, now).Return(nil, nil)

	_, err := svc.Accept(ctx, session.ID, 2)

	assert.True(t, gameerr.IsStateConflict(err))
	m.assertExpectations(t)
}

func TestDuelService_Accept_DiceResolvesInstantly(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }
	rolls := [][2]int{{6, 6}, {1, 2}}
	svc.rollDice = func() (int, int) {
		r := rolls[0]
		rolls = rolls[1:]
		return r[0], r[1]
	}

	session := pendingSession(entities.GameKindDice, 1000, now.Add(time.Minute))
	moveA, moveB := "6,6", "1,2"
	participants := []*entities.Participant{
		{SessionID: session.ID, UserID: 1, StakeContributed: 1000, Move: &moveA},
		{SessionID: session.ID, UserID: 2, StakeContributed: 1000, Move: &moveB},
	}

	accepted := *session
	accepted.Status = entities.SessionStatusAccepted

	winnerID := int64(1)
	completed := *session
	completed.Status = entities.SessionStatusCompleted
	completed.WinnerID = &winnerID

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.eligibility.On("CheckEligible", ctx, int64(2)).Return(eligibleUser(2, 100000), nil)

	// The claim lands before any money moves
	m.sessions.On("Accept", ctx, session.ID, now).Return(&accepted, nil)

	// Both stakes move inside the accept step
	m.ledger.On("Debit", ctx, int64(1), int64(1000), entities.TransactionTypeDuelStake,
		entities.RelatedTypeSession, session.ID.String(), mock.Anything).Return(nil)
	m.ledger.On("Debit", ctx, int64(2), int64(1000), entities.TransactionTypeDuelStake,
		entities.RelatedTypeSession, session.ID.String(), mock.Anything).Return(nil)
	m.sessions.On("SetStakeContributed", ctx, session.ID, int64(1), int64(1000)).Return(nil)
	m.sessions.On("SetStakeContributed", ctx, session.ID, int64(2), int64(1000)).Return(nil)

	m.sessions.On("RecordMove", ctx, session.ID, int64(1), moveA).Return(participants[0], false, nil)
	m.sessions.On("RecordMove", ctx, session.ID, int64(2), moveB).Return(participants[1], true, nil)
	m.sessions.On("GetParticipants", ctx, session.ID).Return(participants, nil)

	m.sessions.On("Complete", ctx, session.ID, entities.SessionStatusAccepted,
		mock.MatchedBy(func(w *int64) bool { return w != nil && *w == 1 }),
		now).Return(&completed, nil)

	// Pot 2000 minus the 10% dice fee
	m.ledger.On("Credit", ctx, int64(1), int64(1800), entities.TransactionTypeDuelWin,
		entities.RelatedTypeSession, session.ID.String(), mock.Anything).Return(nil)
	m.sessions.On("SetSettlement", ctx, session.ID, int64(1), int64(1800)).Return(nil)
	m.sessions.On("SetSettlement", ctx, session.ID, int64(2), int64(0)).Return(nil)

	state, err := svc.Accept(ctx, session.ID, 2)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusCompleted, state.Session.Status)
	require.NotNil(t, state.Session.WinnerID)
	assert.Equal(t, int64(1), *state.Session.WinnerID)
	m.assertExpectations(t)
}

func TestDuelService_Accept_DiceRaceLoserNeverDebits(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }
	session := pendingSession(entities.GameKindDice, 1000, now.Add(time.Minute))

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.eligibility.On("CheckEligible", ctx, int64(2)).Return(eligibleUser(2, 100000), nil)
	// A duplicated accept claimed the session first; this call must stop
	// before any money moves
	m.sessions.On("Accept", ctx, session.ID, now).Return(nil, nil)

	_, err := svc.Accept(ctx, session.ID, 2)

	assert.True(t, gameerr.IsStateConflict(err))
	m.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestDuelService_Cancel_RefundsContribution(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }
	session := pendingSession(entities.GameKindRPS, 500, now.Add(time.Minute))

	cancelled := *session
	cancelled.Status = entities.SessionStatusCancelled

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.sessions.On("Cancel", ctx, session.ID, now).Return(&cancelled, nil)
	m.sessions.On("GetParticipants", ctx, session.ID).Return([]*entities.Participant{
		{SessionID: session.ID, UserID: 1, StakeContributed: 500},
		{SessionID: session.ID, UserID: 2},
	}, nil)
	m.ledger.On("Credit", ctx, int64(1), int64(500), entities.TransactionTypeDuelRefund,
		entities.RelatedTypeSession, session.ID.String(), mock.Anything).Return(nil)
	m.sessions.On("SetSettlement", ctx, session.ID, int64(1), int64(500)).Return(nil)

	result, err := svc.Cancel(ctx, session.ID, 1)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusCancelled, result.Status)
	m.assertExpectations(t)
}

func TestDuelService_Cancel_NotInitiator(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	session := pendingSession(entities.GameKindRPS, 500, time.Now().Add(time.Minute))
	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)

	_, err := svc.Cancel(ctx, session.ID, 2)

	assert.True(t, gameerr.IsValidation(err))
	m.assertExpectations(t)
}

func TestDuelService_SetReady_SecondReadyStartsCountdown(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	session := pendingSession(entities.GameKindClick, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusAccepted

	startedAt := now.Add(3 * time.Second)
	playing := *session
	playing.Status = entities.SessionStatusPlaying
	playing.StartedAt = &startedAt

	participants := []*entities.Participant{
		{SessionID: session.ID, UserID: 1, Ready: true},
		{SessionID: session.ID, UserID: 2, Ready: true},
	}

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil).Once()
	m.sessions.On("SetReady", ctx, session.ID, int64(2)).Return(participants[1], true, nil)
	m.sessions.On("Start", ctx, session.ID, startedAt).Return(&playing, nil)
	m.sessions.On("GetByID", ctx, session.ID).Return(&playing, nil).Once()
	m.sessions.On("GetParticipants", ctx, session.ID).Return(participants, nil)

	state, err := svc.SetReady(ctx, session.ID, 2)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusPlaying, state.Session.Status)
	assert.Equal(t, int64(3000), state.CountdownMs)
	m.assertExpectations(t)
}

func TestDuelService_SetReady_LatePollerObservesStart(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	startedAt := now.Add(-time.Second)
	session := pendingSession(entities.GameKindClick, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusPlaying
	session.StartedAt = &startedAt

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.sessions.On("GetParticipants", ctx, session.ID).Return([]*entities.Participant{
		{SessionID: session.ID, UserID: 1, Ready: true},
		{SessionID: session.ID, UserID: 2, Ready: true},
	}, nil)

	state, err := svc.SetReady(ctx, session.ID, 1)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusPlaying, state.Session.Status)
	m.sessions.AssertNotCalled(t, "SetReady", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestDuelService_SubmitMove_DiceHasNoMoves(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	session := pendingSession(entities.GameKindDice, 500, time.Now().Add(time.Minute))
	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)

	_, err := svc.SubmitMove(ctx, session.ID, 1, "6,6")

	assert.True(t, gameerr.IsValidation(err))
	m.assertExpectations(t)
}

func TestDuelService_SubmitMove_BeforePlayWindowCloses(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	// Click play lasts 10s; submitting 5s in must be refused
	startedAt := now.Add(-5 * time.Second)
	session := pendingSession(entities.GameKindClick, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusPlaying
	session.StartedAt = &startedAt

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)

	_, err := svc.SubmitMove(ctx, session.ID, 1, "87")

	assert.True(t, gameerr.IsStateConflict(err))
	m.assertExpectations(t)
}

func TestDuelService_SubmitMove_WriteOnce(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	startedAt := now.Add(-time.Minute)
	session := pendingSession(entities.GameKindRPS, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusPlaying
	session.StartedAt = &startedAt

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.sessions.On("RecordMove", ctx, session.ID, int64(1), "rock").Return(nil, false, nil)

	_, err := svc.SubmitMove(ctx, session.ID, 1, "rock")

	assert.True(t, gameerr.IsStateConflict(err))
	m.assertExpectations(t)
}

func TestDuelService_SubmitMove_FirstMoveReveals(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	startedAt := now.Add(-time.Minute)
	session := pendingSession(entities.GameKindRPS, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusPlaying
	session.StartedAt = &startedAt

	rock := "rock"
	p1 := &entities.Participant{SessionID: session.ID, UserID: 1, StakeContributed: 500, Move: &rock}

	revealing := *session
	revealing.Status = entities.SessionStatusRevealing

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil).Once()
	// The write reports no committed opponent move: reveal and wait
	m.sessions.On("RecordMove", ctx, session.ID, int64(1), rock).Return(p1, false, nil)
	m.sessions.On("MarkRevealing", ctx, session.ID).Return(&revealing, nil)
	m.sessions.On("GetByID", ctx, session.ID).Return(&revealing, nil).Once()
	m.sessions.On("GetParticipants", ctx, session.ID).Return([]*entities.Participant{
		p1,
		{SessionID: session.ID, UserID: 2, StakeContributed: 500},
	}, nil)

	state, err := svc.SubmitMove(ctx, session.ID, 1, rock)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusRevealing, state.Session.Status)
	m.sessions.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestDuelService_SubmitMove_DecidingMoveSettles(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	startedAt := now.Add(-time.Minute)
	session := pendingSession(entities.GameKindRPS, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusRevealing
	session.StartedAt = &startedAt

	rock, paper := "rock", "paper"
	participants := []*entities.Participant{
		{SessionID: session.ID, UserID: 1, StakeContributed: 500, Move: &rock},
		{SessionID: session.ID, UserID: 2, StakeContributed: 500, Move: &paper},
	}

	winnerID := int64(2)
	completed := *session
	completed.Status = entities.SessionStatusCompleted
	completed.WinnerID = &winnerID

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.sessions.On("RecordMove", ctx, session.ID, int64(2), paper).Return(participants[1], true, nil)
	m.sessions.On("GetParticipants", ctx, session.ID).Return(participants, nil)
	m.sessions.On("Complete", ctx, session.ID, entities.SessionStatusRevealing,
		mock.MatchedBy(func(w *int64) bool { return w != nil && *w == 2 }),
		now).Return(&completed, nil)

	// Pot 1000 minus the 5% rps fee
	m.ledger.On("Credit", ctx, int64(2), int64(950), entities.TransactionTypeDuelWin,
		entities.RelatedTypeSession, session.ID.String(), mock.Anything).Return(nil)
	m.sessions.On("SetSettlement", ctx, session.ID, int64(2), int64(950)).Return(nil)
	m.sessions.On("SetSettlement", ctx, session.ID, int64(1), int64(0)).Return(nil)

	state, err := svc.SubmitMove(ctx, session.ID, 2, paper)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusCompleted, state.Session.Status)
	require.NotNil(t, state.Session.WinnerID)
	assert.Equal(t, int64(2), *state.Session.WinnerID)
	m.assertExpectations(t)
}

func TestDuelService_SubmitMove_TieSplitsFee(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	startedAt := now.Add(-time.Minute)
	session := pendingSession(entities.GameKindRPS, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusRevealing
	session.StartedAt = &startedAt

	rock := "rock"
	participants := []*entities.Participant{
		{SessionID: session.ID, UserID: 1, StakeContributed: 500, Move: &rock},
		{SessionID: session.ID, UserID: 2, StakeContributed: 500, Move: &rock},
	}

	completed := *session
	completed.Status = entities.SessionStatusCompleted

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.sessions.On("RecordMove", ctx, session.ID, int64(2), rock).Return(participants[1], true, nil)
	m.sessions.On("GetParticipants", ctx, session.ID).Return(participants, nil)
	m.sessions.On("Complete", ctx, session.ID, entities.SessionStatusRevealing,
		mock.MatchedBy(func(w *int64) bool { return w == nil }),
		now).Return(&completed, nil)

	// Each side gets stake minus half the pot fee: 500 - 25
	for _, userID := range []int64{1, 2} {
		m.ledger.On("Credit", ctx, userID, int64(475), entities.TransactionTypeDuelTie,
			entities.RelatedTypeSession, session.ID.String(), mock.Anything).Return(nil)
		m.sessions.On("SetSettlement", ctx, session.ID, userID, int64(475)).Return(nil)
	}

	state, err := svc.SubmitMove(ctx, session.ID, 2, rock)

	require.NoError(t, err)
	assert.Nil(t, state.Session.WinnerID)
	m.assertExpectations(t)
}

func TestDuelService_SubmitMove_SettleRaceLoserReadsWinnerOutcome(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	startedAt := now.Add(-time.Minute)
	session := pendingSession(entities.GameKindRPS, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusRevealing
	session.StartedAt = &startedAt

	rock, paper := "rock", "paper"
	participants := []*entities.Participant{
		{SessionID: session.ID, UserID: 1, StakeContributed: 500, Move: &rock},
		{SessionID: session.ID, UserID: 2, StakeContributed: 500, Move: &paper},
	}

	winnerID := int64(2)
	completed := *session
	completed.Status = entities.SessionStatusCompleted
	completed.WinnerID = &winnerID

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil).Once()
	m.sessions.On("RecordMove", ctx, session.ID, int64(2), paper).Return(participants[1], true, nil)
	m.sessions.On("GetParticipants", ctx, session.ID).Return(participants, nil)
	// The conditional complete lost; the stored outcome is re-read instead
	m.sessions.On("Complete", ctx, session.ID, entities.SessionStatusRevealing,
		mock.Anything, now).Return(nil, nil)
	m.sessions.On("GetByID", ctx, session.ID).Return(&completed, nil).Once()

	state, err := svc.SubmitMove(ctx, session.ID, 2, paper)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusCompleted, state.Session.Status)
	m.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestDuelService_GetState_MasksOpponentMove(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	startedAt := now.Add(-time.Minute)
	session := pendingSession(entities.GameKindRPS, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusRevealing
	session.StartedAt = &startedAt

	rock := "rock"
	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.sessions.On("GetParticipants", ctx, session.ID).Return([]*entities.Participant{
		{SessionID: session.ID, UserID: 1, Move: &rock},
		{SessionID: session.ID, UserID: 2},
	}, nil)

	state, err := svc.GetState(ctx, session.ID, 2)

	require.NoError(t, err)
	for _, p := range state.Participants {
		if p.UserID == 1 {
			assert.Nil(t, p.Move, "opponent move must stay hidden until completion")
		}
	}
	m.assertExpectations(t)
}

func TestDuelService_GetState_SettlesDuelWithBothMovesStored(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	// Two submissions in flight together each saw no opponent move; both
	// revealed and neither settled. The next poll must finish the duel.
	startedAt := now.Add(-time.Minute)
	session := pendingSession(entities.GameKindRPS, 500, now.Add(time.Minute))
	session.Status = entities.SessionStatusRevealing
	session.StartedAt = &startedAt

	rock, paper := "rock", "paper"
	participants := []*entities.Participant{
		{SessionID: session.ID, UserID: 1, StakeContributed: 500, Move: &rock},
		{SessionID: session.ID, UserID: 2, StakeContributed: 500, Move: &paper},
	}

	winnerID := int64(2)
	completed := *session
	completed.Status = entities.SessionStatusCompleted
	completed.WinnerID = &winnerID

	m.sessions.On("GetByID", ctx, session.ID).Return(session, nil)
	m.sessions.On("GetParticipants", ctx, session.ID).Return(participants, nil)
	m.sessions.On("Complete", ctx, session.ID, entities.SessionStatusRevealing,
		mock.MatchedBy(func(w *int64) bool { return w != nil && *w == 2 }),
		now).Return(&completed, nil)
	m.ledger.On("Credit", ctx, int64(2), int64(950), entities.TransactionTypeDuelWin,
		entities.RelatedTypeSession, session.ID.String(), mock.Anything).Return(nil)
	m.sessions.On("SetSettlement", ctx, session.ID, int64(2), int64(950)).Return(nil)
	m.sessions.On("SetSettlement", ctx, session.ID, int64(1), int64(0)).Return(nil)

	state, err := svc.GetState(ctx, session.ID, 1)

	require.NoError(t, err)
	assert.Equal(t, entities.SessionStatusCompleted, state.Session.Status)
	require.NotNil(t, state.Session.WinnerID)
	assert.Equal(t, int64(2), *state.Session.WinnerID)
	m.assertExpectations(t)
}

func TestDuelService_SweepExpired_SkipsAlreadyExpired(t *testing.T) {
	svc, m := newTestDuelService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	s1 := pendingSession(entities.GameKindRPS, 500, now.Add(-time.Minute))
	s2 := pendingSession(entities.GameKindClick, 500, now.Add(-time.Minute))

	expired := *s1
	expired.Status = entities.SessionStatusExpired

	m.sessions.On("GetExpiredPending", ctx, now, 10).Return([]*entities.Session{s1, s2}, nil)
	m.sessions.On("Expire", ctx, s1.ID, now).Return(&expired, nil)
	m.sessions.On("GetParticipants", ctx, s1.ID).Return([]*entities.Participant{
		{SessionID: s1.ID, UserID: 1, StakeContributed: 500},
		{SessionID: s1.ID, UserID: 2},
	}, nil)
	m.ledger.On("Credit", ctx, int64(1), int64(500), entities.TransactionTypeDuelRefund,
		entities.RelatedTypeSession, s1.ID.String(), mock.Anything).Return(nil)
	m.sessions.On("SetSettlement", ctx, s1.ID, int64(1), int64(500)).Return(nil)
	// s2 was expired by a concurrent sweeper
	m.sessions.On("Expire", ctx, s2.ID, now).Return(nil, nil)

	swept, err := svc.SweepExpired(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	m.assertExpectations(t)
}
