package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamehall/domain/entities"
	"gamehall/domain/gameerr"
	"gamehall/domain/testhelpers"
)

func TestEngine_SessionAudit_SumsLedgerMovements(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.New()

	uow := new(testhelpers.MockUnitOfWork)
	factory := new(testhelpers.MockUnitOfWorkFactory)
	history := new(testhelpers.MockBalanceHistoryRepository)

	factory.On("Create").Return(uow)
	uow.On("Begin", ctx).Return(nil)
	uow.On("BalanceHistory").Return(history)
	// Two 1000 stakes in, 1800 paid out: the house kept 200
	history.On("NetMovementForRelated", ctx, entities.RelatedTypeSession, sessionID.String()).
		Return(int64(-200), nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)

	net, err := New(factory).SessionAudit(ctx, sessionID)

	require.NoError(t, err)
	assert.Equal(t, int64(-200), net)
	factory.AssertExpectations(t)
	uow.AssertExpectations(t)
	history.AssertExpectations(t)
}

func TestEngine_SessionAudit_RollsBackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.New()

	uow := new(testhelpers.MockUnitOfWork)
	factory := new(testhelpers.MockUnitOfWorkFactory)
	history := new(testhelpers.MockBalanceHistoryRepository)

	factory.On("Create").Return(uow)
	uow.On("Begin", ctx).Return(nil)
	uow.On("BalanceHistory").Return(history)
	history.On("NetMovementForRelated", ctx, entities.RelatedTypeSession, sessionID.String()).
		Return(int64(0), errors.New("connection reset"))
	uow.On("Rollback").Return(nil)

	_, err := New(factory).SessionAudit(ctx, sessionID)

	assert.True(t, gameerr.IsStore(err))
	uow.AssertNotCalled(t, "Commit")
	uow.AssertExpectations(t)
}
