package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"gamehall/domain/entities"
	"gamehall/domain/gameerr"
	"gamehall/domain/interfaces"
)

type ledgerService struct {
	userRepo    interfaces.UserRepository
	historyRepo interfaces.BalanceHistoryRepository
}

// NewLedger creates a ledger over the given repositories. The repositories
// must share the caller's transaction: a failed movement rolls back the
// guarded transition that requested it.
func NewLedger(userRepo interfaces.UserRepository, historyRepo interfaces.BalanceHistoryRepository) interfaces.Ledger {
	return &ledgerService{userRepo: userRepo, historyRepo: historyRepo}
}

// Debit subtracts amount conditionally and records the movement
func (s *ledgerService) Debit(ctx context.Context, userID, amount int64, txType entities.TransactionType, relatedType entities.RelatedType, relatedID string, metadata map[string]any) error {
	if amount <= 0 {
		return gameerr.NewValidation("debit amount must be positive, got %d", amount)
	}

	// Conditional write: the balance check and the subtraction are one
	// atomic statement, not a read followed by an update.
	updated, err := s.userRepo.Debit(ctx, userID, amount)
	if err != nil {
		return gameerr.NewStore("debit balance", err)
	}
	if updated == nil {
		return gameerr.NewEligibility("user %d has insufficient balance for %d", userID, amount)
	}

	return s.record(ctx, updated, -amount, txType, relatedType, relatedID, metadata)
}

// Credit adds amount and records the movement
func (s *ledgerService) Credit(ctx context.Context, userID, amount int64, txType entities.TransactionType, relatedType entities.RelatedType, relatedID string, metadata map[string]any) error {
	if amount <= 0 {
		return gameerr.NewValidation("credit amount must be positive, got %d", amount)
	}

	updated, err := s.userRepo.Credit(ctx, userID, amount)
	if err != nil {
		return gameerr.NewStore("credit balance", err)
	}
	if updated == nil {
		return gameerr.NewStateConflict("user %d not found", userID)
	}

	return s.record(ctx, updated, amount, txType, relatedType, relatedID, metadata)
}

func (s *ledgerService) record(ctx context.Context, user *entities.User, change int64, txType entities.TransactionType, relatedType entities.RelatedType, relatedID string, metadata map[string]any) error {
	history := &entities.BalanceHistory{
		UserID:              user.ID,
		BalanceBefore:       user.Balance - change,
		BalanceAfter:        user.Balance,
		ChangeAmount:        change,
		TransactionType:     txType,
		TransactionMetadata: metadata,
		RelatedID:           &relatedID,
		RelatedType:         &relatedType,
	}

	if err := s.historyRepo.Record(ctx, history); err != nil {
		return gameerr.NewStore("record balance history", err)
	}

	log.WithFields(log.Fields{
		"user_id": user.ID,
		"change":  change,
		"type":    txType,
		"related": relatedID,
	}).Debug("balance movement recorded")

	return nil
}
